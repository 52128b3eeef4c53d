package history

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/xyths/fxbot/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collNameHistory = "history"

// MongoLog keeps trades in the history collection.
type MongoLog struct {
	coll *mongo.Collection
}

func NewMongoLog(db *mongo.Database) *MongoLog {
	return &MongoLog{coll: db.Collection(collNameHistory)}
}

func (l *MongoLog) Append(ctx context.Context, r Record) error {
	_, err := l.coll.InsertOne(ctx, &r)
	return err
}

// Trades returns the records with start <= time <= end, oldest first.
func (l *MongoLog) Trades(ctx context.Context, start, end time.Time) (records []Record, err error) {
	cursor, err := l.coll.Find(ctx, bson.D{
		{Key: "time", Value: bson.D{
			{Key: "$gte", Value: start},
			{Key: "$lte", Value: end},
		}},
	}, options.Find().SetSort(bson.D{{Key: "time", Value: 1}}))
	if err != nil {
		return
	}
	err = cursor.All(ctx, &records)
	return
}

// Export writes the trades between start and end to csvfile, in the trade log format.
func (l *MongoLog) Export(ctx context.Context, start, end time.Time, csvfile string) (int, error) {
	records, err := l.Trades(ctx, start, end)
	if err != nil {
		return 0, errors.Wrap(err, "query trades")
	}
	f, err := os.Create(csvfile)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
	}()
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, Header)
	for _, r := range records {
		r.Time = r.Time.In(start.Location())
		rows = append(rows, r.Row())
	}
	return len(records), writeRows(f, rows)
}

// ParseStartEndTime parses an export range given in loc.
func ParseStartEndTime(start, end string, loc *time.Location) (startTime, endTime time.Time, err error) {
	startTime, err = time.ParseInLocation(types.TimeLayout, start, loc)
	if err != nil {
		err = errors.Wrapf(err, "bad start time %q", start)
		return
	}
	endTime, err = time.ParseInLocation(types.TimeLayout, end, loc)
	if err != nil {
		err = errors.Wrapf(err, "bad end time %q", end)
		return
	}
	if !startTime.Before(endTime) {
		err = errors.Errorf("start time(%s) must before end time(%s)", startTime, endTime)
	}
	return
}
