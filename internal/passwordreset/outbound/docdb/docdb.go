package docdb

import (
	"context"
	"errors"
	"time"

	"github.com/shandysiswandi/otpreset/internal/pkg/clock"
	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// profile is one document per user keyed by user id; a null or missing
// reset_secret means no reset is pending.
type profile struct {
	UserID      string    `bson:"_id"`
	ResetSecret *string   `bson:"reset_secret"`
	UpdatedAt   time.Time `bson:"updated_at,omitempty"`
}

// DocDB is a mongo secret store. updated_at is stamped from clock.
type DocDB struct {
	col   *mongo.Collection
	clock clock.Clocker
	ins   instrument.Instrumentation
}

func NewDocDB(col *mongo.Collection, clk clock.Clocker, ins instrument.Instrumentation) *DocDB {
	return &DocDB{col: col, clock: clk, ins: ins}
}

func (s *DocDB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("passwordreset.outbound.docdb").Start(ctx, name)
}

func (s *DocDB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *DocDB) find(ctx context.Context, userID string) (*profile, error) {
	var p profile
	err := s.col.FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"reset_secret": 1}),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *DocDB) GetSecret(ctx context.Context, userID string) (_ string, err error) {
	ctx, span := s.startSpan(ctx, "GetSecret")
	defer func() { s.endSpan(span, err) }()

	p, err := s.find(ctx, userID)
	if err != nil {
		return "", err
	}
	if p.ResetSecret == nil {
		return "", nil
	}

	return *p.ResetSecret, nil
}

func (s *DocDB) CreateSecret(ctx context.Context, userID, sealed string) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSecret")
	defer func() { s.endSpan(span, err) }()

	// {reset_secret: null} also matches documents without the field.
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID, "reset_secret": nil},
		bson.M{"$set": bson.M{"reset_secret": sealed, "updated_at": s.clock.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	if _, err := s.find(ctx, userID); err != nil {
		return err
	}
	return goerror.ErrConflict
}

func (s *DocDB) ClearSecret(ctx context.Context, userID, sealed string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "ClearSecret")
	defer func() { s.endSpan(span, err) }()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID, "reset_secret": sealed},
		bson.M{"$set": bson.M{"reset_secret": nil, "updated_at": s.clock.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	p, err := s.find(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.ResetSecret == nil {
		return false, nil
	}
	return false, goerror.ErrConflict
}

// Ping backs the health endpoint.
func (s *DocDB) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, nil)
}
