package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	notifusecase "github.com/shandysiswandi/otpreset/internal/notification/usecase"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/entity"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/inbound"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/outbound/cache"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/outbound/db"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/outbound/docdb"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/outbound/mq"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/outbound/notifier"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/usecase"
	"github.com/shandysiswandi/otpreset/internal/pkg/clock"
	"github.com/shandysiswandi/otpreset/internal/pkg/config"
	"github.com/shandysiswandi/otpreset/internal/pkg/hash"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/messaging"
	"github.com/shandysiswandi/otpreset/internal/pkg/otp"
	"github.com/shandysiswandi/otpreset/internal/pkg/router"
	"github.com/shandysiswandi/otpreset/internal/pkg/secretbox"
	"github.com/shandysiswandi/otpreset/internal/pkg/uid"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMongo    = "mongo"

	NotifierDriverMail      = "mail"
	NotifierDriverMessaging = "messaging"

	defaultMongoCollection = "password_reset_profiles"

	// the response and the mail state validity in whole minutes
	minOTPPeriodSeconds = 60
)

var (
	ErrUnknownStoreDriver    = errors.New("passwordreset: unknown secret store driver")
	ErrUnknownNotifierDriver = errors.New("passwordreset: unknown notifier driver")
	ErrMissingDependency     = errors.New("passwordreset: missing dependency")
	ErrOTPPeriodTooShort     = errors.New("passwordreset: otp period must be at least 60 seconds")
)

type Dependency struct {
	DBConn       *pgxpool.Pool
	Redis        redis.UniversalClient
	Mongo        *mongo.Database
	Messaging    messaging.Messaging
	Notification *notifusecase.Usecase
	Config       config.Config
	Instrument   instrument.Instrumentation
	UID          uid.NumberID
	Clock        clock.Clocker
	Validator    validator.Validator
	Hash         hash.Hash
	Router       *router.Router
}

func New(dep Dependency) error {
	if dep.DBConn == nil {
		return fmt.Errorf("%w: postgres pool", ErrMissingDependency)
	}

	otpCfg, err := OTPConfig(dep.Config)
	if err != nil {
		return err
	}

	sealer, err := secretbox.NewAESGCM(dep.Config.GetBinary("modules.passwordreset.sealing_key"))
	if err != nil {
		return fmt.Errorf("passwordreset: sealing key: %w", err)
	}

	dbReset := db.NewDB(dep.DBConn, dep.Hash, dep.Instrument)

	store, err := newStore(dep, dbReset)
	if err != nil {
		return err
	}

	sender, err := newNotifier(dep)
	if err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		Directory:  dbReset,
		Credential: dbReset,
		Store:      store,
		Notifier:   sender,
		Sealer:     sealer,
		Validator:  dep.Validator,
		Config:     dep.Config,
		OTP:        otpCfg,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}

// OTPConfig reads modules.passwordreset.otp.*. Codes are always 6 digits.
// Periods shorter than a minute are rejected with ErrOTPPeriodTooShort.
func OTPConfig(cfg config.Config) (otp.Config, error) {
	c := otp.DefaultConfig()
	if v := cfg.GetString("modules.passwordreset.otp.issuer"); v != "" {
		c.Issuer = v
	}
	if v := cfg.GetUint("modules.passwordreset.otp.period_seconds"); v > 0 {
		if v < minOTPPeriodSeconds {
			return otp.Config{}, fmt.Errorf("%w: got %d", ErrOTPPeriodTooShort, v)
		}
		c.Period = v
	}
	if v := cfg.GetUint("modules.passwordreset.otp.secret_size"); v > 0 {
		c.SecretSize = v
	}
	c.Skew = cfg.GetUint("modules.passwordreset.otp.skew")
	c.Algorithm = otp.ParseAlgorithm(cfg.GetString("modules.passwordreset.otp.algorithm"))
	return c, nil
}

type secretStore interface {
	GetSecret(ctx context.Context, userID string) (string, error)
	CreateSecret(ctx context.Context, userID, sealed string) error
	ClearSecret(ctx context.Context, userID, sealed string) (bool, error)
}

func newStore(dep Dependency, dbReset *db.DB) (secretStore, error) {
	driver := strings.TrimSpace(dep.Config.GetString("modules.passwordreset.secret_store.driver"))
	switch driver {
	case "", StoreDriverPostgres:
		return dbReset, nil
	case StoreDriverRedis:
		if dep.Redis == nil {
			return nil, fmt.Errorf("%w: redis client", ErrMissingDependency)
		}
		ttl := dep.Config.GetSecond("modules.passwordreset.secret_store.redis_ttl_seconds")
		return cache.NewCache(dep.Redis, ttl, dep.Instrument), nil
	case StoreDriverMongo:
		if dep.Mongo == nil || dep.Clock == nil {
			return nil, fmt.Errorf("%w: mongo database and clock", ErrMissingDependency)
		}
		name := dep.Config.GetString("mongo.collection")
		if name == "" {
			name = defaultMongoCollection
		}
		return docdb.NewDocDB(dep.Mongo.Collection(name), dep.Clock, dep.Instrument), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, driver)
	}
}

type resetNotifier interface {
	SendResetCode(ctx context.Context, rc entity.ResetCode) error
}

func newNotifier(dep Dependency) (resetNotifier, error) {
	driver := strings.TrimSpace(dep.Config.GetString("modules.passwordreset.notifier.driver"))
	switch driver {
	case "", NotifierDriverMail:
		if dep.Notification == nil {
			return nil, fmt.Errorf("%w: notification usecase", ErrMissingDependency)
		}
		return notifier.NewNotifier(dep.Notification, dep.Instrument), nil
	case NotifierDriverMessaging:
		if dep.Messaging == nil || dep.UID == nil {
			return nil, fmt.Errorf("%w: messaging client and event id generator", ErrMissingDependency)
		}
		return mq.NewMQ(dep.Messaging, dep.UID, dep.Instrument), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotifierDriver, driver)
	}
}
