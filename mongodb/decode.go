package mongodb

import (
	"strings"

	"emperror.dev/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrInvalidPayload = errors.NewPlain("invalid mongo payload")

func decodeDocument(kind, payload string) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(payload), false, &doc); err != nil {
		return nil, errors.WithDetails(errors.Wrapf(ErrInvalidPayload, "%s: %v", kind, err), "payload", payload)
	}
	return doc, nil
}

// DecodeFilter parses a relaxed extended JSON document. An empty string matches everything.
func DecodeFilter(payload string) (bson.D, error) {
	if strings.TrimSpace(payload) == "" {
		return bson.D{}, nil
	}
	return decodeDocument("filter", payload)
}

// DecodeProjection parses a projection document. An empty string means no projection.
func DecodeProjection(payload string) (bson.D, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	return decodeDocument("projection", payload)
}

// DecodePipeline parses a JSON array of aggregation stages.
func DecodePipeline(payload string) (mongo.Pipeline, error) {
	// extended JSON must be a document at the top level
	wrapped := `{"pipeline": ` + strings.TrimSpace(payload) + `}`
	var doc struct {
		Pipeline []bson.D `bson:"pipeline"`
	}
	if err := bson.UnmarshalExtJSON([]byte(wrapped), false, &doc); err != nil {
		return nil, errors.WithDetails(errors.Wrapf(ErrInvalidPayload, "pipeline: %v", err), "payload", payload)
	}
	if len(doc.Pipeline) == 0 {
		return nil, errors.WithDetails(errors.Wrap(ErrInvalidPayload, "empty pipeline"), "payload", payload)
	}
	return doc.Pipeline, nil
}
