// Package mongodb runs the document form of the workload against a MongoDB server.
package mongodb

import (
	"context"
	"os"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JustFiesta/DB-engine-comparison/common"
	"github.com/JustFiesta/DB-engine-comparison/monitor"
	"github.com/JustFiesta/DB-engine-comparison/workload"
)

const (
	ServerSelectionTimeout = 30 * time.Second
	ConnectTimeout         = 60 * time.Second
	SocketTimeout          = 90 * time.Second
	BatchSize              = 1000
)

type Options struct {
	URI          string
	Target       common.Target
	ProcessNames []string
}

func OptionsFrom(config common.EngineConfig) (Options, error) {
	target, err := common.ParseTarget(config.Target)
	if err != nil {
		return Options{}, err
	}
	return Options{URI: config.URI, Target: target, ProcessNames: config.ProcessNames}, nil
}

type MongoCUT struct {
	opts   Options
	client *mongo.Client
	db     *mongo.Database
}

var _ common.CUT = (*MongoCUT)(nil)

func New(opts Options) *MongoCUT {
	return &MongoCUT{opts: opts}
}

func (c *MongoCUT) Name() string {
	return "mongodb"
}

func (c *MongoCUT) Open(ctx context.Context, dataset *workload.Dataset) error {
	if c.client != nil {
		return nil
	}
	clientOptions := options.Client().
		ApplyURI(c.opts.URI).
		SetServerSelectionTimeout(ServerSelectionTimeout).
		SetConnectTimeout(ConnectTimeout).
		SetSocketTimeout(SocketTimeout).
		SetMaxPoolSize(1)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return errors.WrapWithDetails(err, "failed to connect to mongodb", "uri", c.opts.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return errors.WrapWithDetails(err, "mongodb is not reachable", "uri", c.opts.URI)
	}
	c.client = client
	c.db = client.Database(dataset.MongoDatabase)
	return nil
}

func (c *MongoCUT) Close() error {
	if c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.db = nil
	return errors.Wrap(err, "failed to disconnect from mongodb")
}

// Execute runs the aggregation pipeline, or the find filter when there is none,
// and drains the cursor.
func (c *MongoCUT) Execute(ctx context.Context, query workload.Query) (int64, error) {
	if c.db == nil {
		return 0, errors.New("database is not open")
	}
	collection := c.db.Collection(query.Mongo.Collection)

	var cursor *mongo.Cursor
	if query.Mongo.IsAggregation() {
		pipeline, err := DecodePipeline(query.Mongo.Pipeline)
		if err != nil {
			return 0, errors.WithDetails(err, "query", query.ID)
		}
		cursor, err = collection.Aggregate(ctx, pipeline,
			options.Aggregate().SetAllowDiskUse(true).SetBatchSize(BatchSize))
		if err != nil {
			return 0, errors.WrapWithDetails(err, "aggregation failed", "query", query.ID)
		}
	} else {
		filter, err := DecodeFilter(query.Mongo.Filter)
		if err != nil {
			return 0, errors.WithDetails(err, "query", query.ID)
		}
		findOptions := options.Find().SetBatchSize(BatchSize)
		projection, err := DecodeProjection(query.Mongo.Projection)
		if err != nil {
			return 0, errors.WithDetails(err, "query", query.ID)
		}
		if projection != nil {
			findOptions.SetProjection(projection)
		}
		cursor, err = collection.Find(ctx, filter, findOptions)
		if err != nil {
			return 0, errors.WrapWithDetails(err, "find failed", "query", query.ID)
		}
	}
	defer cursor.Close(context.Background())

	var count int64
	for cursor.Next(ctx) {
		count++
	}
	if err := cursor.Err(); err != nil {
		return count, errors.WrapWithDetails(err, "failed to read documents", "query", query.ID)
	}
	return count, nil
}

type serverStatus struct {
	PID int64 `bson:"pid"`
}

// TargetPID asks the server for its own pid through serverStatus, which needs the
// clusterMonitor role. Without it the process is looked up by name.
func (c *MongoCUT) TargetPID(ctx context.Context) (int32, error) {
	switch c.opts.Target.Mode {
	case common.TargetPID:
		return c.opts.Target.PID, nil
	case common.TargetSelf:
		return int32(os.Getpid()), nil
	}

	if c.client != nil {
		var status serverStatus
		err := c.client.Database("admin").RunCommand(ctx, bson.D{{Key: "serverStatus", Value: 1}}).Decode(&status)
		if err == nil && status.PID > 0 {
			return int32(status.PID), nil
		}
		log.Debugf("serverStatus did not report a pid, looking up process by name: %v", err)
	}
	return monitor.FindProcessByName(c.opts.ProcessNames...)
}

// Size returns storageSize + indexSize of the current database.
func (c *MongoCUT) Size() uint64 {
	if c.db == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stats bson.M
	if err := c.db.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats); err != nil {
		log.Debugf("dbStats failed: %v", err)
		return 0
	}
	return toUint64(stats["storageSize"]) + toUint64(stats["indexSize"])
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case int32:
		if n > 0 {
			return uint64(n)
		}
	case int64:
		if n > 0 {
			return uint64(n)
		}
	case float64:
		if n > 0 {
			return uint64(n)
		}
	}
	return 0
}
