package databases

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

const (
	reportName  = "reports"
	logName     = "report_logs"
	counterName = "counters"
)

type reportDatabase struct {
	db DatabaseHelper
}

// NewReportDatabase initializes a mongo backed ReportStore with the provided db connection
func NewReportDatabase(db DatabaseHelper) ReportStore {
	return &reportDatabase{
		db: db,
	}
}

func (r *reportDatabase) Find(ctx context.Context, c filters.Criteria, page *Paginate) ([]models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reportedAt", Value: -1}, {Key: "_id", Value: 1}})
	if page != nil {
		opts.SetLimit(page.Limit).SetSkip(page.Skip())
	}
	cursor, err := r.db.Collection(reportName).Find(ctx, c.BSON(), opts)
	if err != nil {
		return nil, storeErr("find reports", err)
	}
	reports := []models.Report{}
	if err = cursor.Decode(&reports); err != nil {
		return nil, storeErr("decode reports", err)
	}
	return reports, nil
}

func (r *reportDatabase) FindOne(ctx context.Context, id string) (*models.Report, error) {
	report := &models.Report{}
	err := r.db.Collection(reportName).FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find report", err)
	}
	return report, nil
}

func (r *reportDatabase) Insert(ctx context.Context, report models.Report) (string, error) {
	if _, err := r.db.Collection(reportName).InsertOne(ctx, report); err != nil {
		return "", storeErr("insert report", err)
	}
	return report.ID, nil
}

func (r *reportDatabase) Update(ctx context.Context, id string, expected models.Status, u models.ReportUpdate) (bool, error) {
	set := bson.M{
		"status":    u.Status,
		"updatedAt": u.UpdatedAt,
	}
	if u.AssigneeID != nil {
		set["assigneeId"] = *u.AssigneeID
	}
	if u.VerifierID != nil {
		set["verifierId"] = *u.VerifierID
	}
	if u.ResolutionNotes != nil {
		set["resolutionNotes"] = *u.ResolutionNotes
	}
	if u.RejectionReason != nil {
		set["rejectionReason"] = *u.RejectionReason
	}
	if u.ResolvedAt != nil {
		set["resolvedAt"] = *u.ResolvedAt
	}
	matched, err := r.db.Collection(reportName).UpdateOne(ctx, bson.M{"_id": id, "status": expected}, bson.M{"$set": set})
	if err != nil {
		return false, storeErr("update report", err)
	}
	return matched > 0, nil
}

func (r *reportDatabase) AppendLog(ctx context.Context, e models.FollowUpEntry) (string, error) {
	if _, err := r.db.Collection(logName).InsertOne(ctx, e); err != nil {
		return "", storeErr("append log", err)
	}
	return e.ID, nil
}

func (r *reportDatabase) Logs(ctx context.Context, reportID string) ([]models.FollowUpEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(logName).Find(ctx, bson.M{"reportId": reportID}, opts)
	if err != nil {
		return nil, storeErr("find logs", err)
	}
	entries := []models.FollowUpEntry{}
	if err = cursor.Decode(&entries); err != nil {
		return nil, storeErr("decode logs", err)
	}
	return entries, nil
}

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func (r *reportDatabase) NextSequence(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	c := &counter{}
	err := r.db.Collection(counterName).
		FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"seq": 1}}, opts).
		Decode(&c)
	if err != nil {
		return 0, storeErr("next sequence", err)
	}
	return c.Seq, nil
}

// WithTransaction runs fn inside a mongo session transaction. Writes made
// with the session context fn receives belong to the transaction.
func (r *reportDatabase) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ReportStore) error) error {
	sess, err := r.db.Client().StartSession()
	if err != nil {
		return storeErr("start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, r)
	})
	return err
}
