package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/runnerr0/streamtally/internal/doc"
)

// MongoStore keeps each event as one document in a MongoDB collection.
// The payload is nested under "event" so its own keys, _id included, are
// never mistaken for the document key. The store's ObjectID orders scans.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	owned      bool
}

// NewMongoStore uses collection from an already connected client.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{client: collection.Database().Client(), collection: collection}
}

// OpenMongo connects to uri and pings the server before returning.
func OpenMongo(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := NewMongoStore(client.Database(database).Collection(collection))
	s.owned = true
	return s, nil
}

// eventField holds the payload inside each stored document.
const eventField = "event"

func (s *MongoStore) Insert(ctx context.Context, event *Event) error {
	d, err := eventDocument(event)
	if err != nil {
		return unavailable("insert document", err)
	}
	if _, err := s.collection.InsertOne(ctx, d); err != nil {
		return unavailable("insert document", err)
	}
	return nil
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Scan lets the server apply the projection.
func (s *MongoStore) Scan(ctx context.Context, fields ...string) (Cursor, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(projection(fields))

	cur, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	return &mongoCursor{cur: cur}, nil
}

func (s *MongoStore) Purge(ctx context.Context) error {
	if _, err := s.collection.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type mongoCursor struct {
	cur *mongo.Cursor
	doc doc.Value
	err error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	var d bson.D
	if err := c.cur.Decode(&d); err != nil {
		c.err = fmt.Errorf("decode document: %w", err)
		return false
	}
	c.doc = payloadOf(d)
	return true
}

func (c *mongoCursor) Doc() doc.Value { return c.doc }

func (c *mongoCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoCursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

// eventDocument wraps the payload with a store-assigned key.
func eventDocument(event *Event) (bson.D, error) {
	payload, ok := toBSON(event.Doc).(bson.D)
	if !ok {
		return nil, fmt.Errorf("event %s is not an object", event.ID)
	}
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "event_id", Value: event.ID},
		{Key: "received_at", Value: primitive.NewDateTimeFromTime(event.ReceivedAt)},
		{Key: eventField, Value: payload},
	}, nil
}

// projection selects payload fields. With none it selects the whole payload.
func projection(fields []string) bson.D {
	proj := bson.D{{Key: "_id", Value: 0}}
	if len(fields) == 0 {
		return append(proj, bson.E{Key: eventField, Value: 1})
	}
	for _, f := range fields {
		proj = append(proj, bson.E{Key: eventField + "." + f, Value: 1})
	}
	return proj
}

// payloadOf extracts the payload of a stored document. A projection that
// matched nothing leaves no payload, which reads as an empty object.
func payloadOf(d bson.D) doc.Value {
	for _, e := range d {
		if e.Key != eventField {
			continue
		}
		if v := fromBSON(e.Value); v.Kind() == doc.KindMap {
			return v
		}
	}
	return doc.NewMap()
}

// toBSON converts a document value to driver types. Integral numbers that
// fit become int64 so ids survive the round trip.
func toBSON(v doc.Value) any {
	switch v.Kind() {
	case doc.KindBool:
		b, _ := v.Bool()
		return b
	case doc.KindString:
		s, _ := v.Str()
		return s
	case doc.KindNumber:
		lit, _ := v.Number()
		if !strings.ContainsAny(lit, ".eE") {
			if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
				return n
			}
		}
		f, _ := v.Float()
		return f
	case doc.KindList:
		items := v.Items()
		a := make(bson.A, len(items))
		for i, item := range items {
			a[i] = toBSON(item)
		}
		return a
	case doc.KindMap:
		keys := v.Keys()
		d := make(bson.D, 0, len(keys))
		for _, k := range keys {
			val, _ := v.Get(k)
			d = append(d, bson.E{Key: k, Value: toBSON(val)})
		}
		return d
	}
	return nil
}

func fromBSON(x any) doc.Value {
	switch t := x.(type) {
	case nil:
		return doc.Null()
	case bool:
		return doc.BoolValue(t)
	case string:
		return doc.StringValue(t)
	case int32:
		return doc.IntValue(int64(t))
	case int64:
		return doc.IntValue(t)
	case int:
		return doc.IntValue(int64(t))
	case float64:
		return doc.FloatValue(t)
	case primitive.Decimal128:
		return doc.NumberValue(t.String())
	case primitive.ObjectID:
		return doc.StringValue(t.Hex())
	case primitive.DateTime:
		return doc.StringValue(t.Time().UTC().Format(time.RFC3339Nano))
	case bson.D:
		m := doc.NewMap()
		for _, e := range t {
			m.Set(e.Key, fromBSON(e.Value))
		}
		return m
	case bson.M:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := doc.NewMap()
		for _, k := range keys {
			m.Set(k, fromBSON(t[k]))
		}
		return m
	case bson.A:
		items := make([]doc.Value, len(t))
		for i, item := range t {
			items[i] = fromBSON(item)
		}
		return doc.ListValue(items...)
	case []any:
		items := make([]doc.Value, len(t))
		for i, item := range t {
			items[i] = fromBSON(item)
		}
		return doc.ListValue(items...)
	}
	return doc.StringValue(fmt.Sprint(x))
}
