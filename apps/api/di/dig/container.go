package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	rediscache "github.com/trezcool/shule/storage/cache/redis"
	"github.com/trezcool/shule/storage/database"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
	mongostore "github.com/trezcool/shule/storage/mongo"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Stores are the repositories selected by the configuration.
	Stores struct {
		dig.Out
		SQL     *sqlx.DB // nil with the memory engine
		Users   user.Repository
		Schools school.Repository
		Scales  grading.ScaleRepository
		Grades  grading.GradeRepository
		Audit   audit.Repository
		Closer  *Closer
	}

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		SchoolSvc  *school.Service
		GradingSvc *grading.Service
		AuditSvc   *audit.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	gradingParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Scales     grading.ScaleRepository
		Grades     grading.GradeRepository
		Dir        grading.Directory
		AuditSvc   *audit.Service
		MailSvc    core.EmailService
		Validate   *validator.Validate
		Translator ut.Translator
	}
)

// Closer releases the connections opened by the stores, last opened first.
type Closer struct {
	fns []func() error
}

func (c *Closer) add(fn func() error) { c.fns = append(c.fns, fn) }

func (c *Closer) Close() error {
	var first error
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newLogger(conf *core.Config, prefix string) core.Logger {
	stdLogger := log.New(os.Stdout, prefix, log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStores(conf *core.Config, loggerParam DBLoggerParam) (Stores, error) {
	ctx := context.Background()
	stores := Stores{Closer: new(Closer)}
	fail := func(err error) (Stores, error) {
		_ = stores.Closer.Close()
		return Stores{}, err
	}

	if conf.Database.Engine == database.Memory {
		db := inmemdb.Open()
		stores.Users = inmemdb.NewUserRepository(db)
		stores.Schools = inmemdb.NewSchoolRepository(db)
		stores.Scales = inmemdb.NewScaleRepository(db)
		stores.Grades = inmemdb.NewGradeRepository(db)
		stores.Audit = inmemdb.NewAuditRepository(db)
	} else {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return fail(errors.Wrap(err, "creating database"))
		}
		db, err := database.Open(conf)
		if err != nil {
			return fail(errors.Wrap(err, "opening database"))
		}
		stores.Closer.add(db.Close)
		if err = database.Migrate(db, conf); err != nil {
			return fail(err)
		}
		stores.SQL = db
		stores.Users = sqlxrepos.NewUserRepository(db)
		stores.Schools = sqlxrepos.NewSchoolRepository(db)
		stores.Scales = sqlxrepos.NewScaleRepository(db)
		stores.Grades = sqlxrepos.NewGradeRepository(db)
		stores.Audit = sqlxrepos.NewAuditRepository(db)
	}

	if conf.Redis.URL != "" {
		client, err := rediscache.Open(ctx, conf.Redis.URL)
		if err != nil {
			return fail(errors.Wrap(err, "connecting to redis"))
		}
		stores.Closer.add(client.Close)
		stores.Scales = rediscache.NewScaleCache(client, stores.Scales, conf.Redis.ScaleTTL, loggerParam.Logger)
	}

	if conf.Audit.Backend == "mongo" {
		client, err := mongostore.Connect(ctx, conf.Audit.MongoURI)
		if err != nil {
			return fail(errors.Wrap(err, "connecting to mongo"))
		}
		stores.Closer.add(func() error { return client.Disconnect(context.Background()) })
		repo, err := mongostore.NewAuditRepository(ctx, client.Database(conf.Audit.MongoDatabase))
		if err != nil {
			return fail(err)
		}
		stores.Audit = repo
	}

	loggerParam.Logger.Info(fmt.Sprintf("stores ready : engine %q, audit %q", conf.Database.Engine, conf.Audit.Backend))
	return stores, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newGradingService(p gradingParams) (*grading.Service, error) {
	scale := grading.DefaultScale()
	if path := p.Conf.Grading.DefaultScaleFile; path != "" {
		var err error
		if scale, err = grading.LoadScaleFile(path, p.Validate); err != nil {
			return nil, errors.Wrapf(err, "loading default scale %s", path)
		}
	}
	return grading.NewService(p.Scales, p.Grades, p.Dir, grading.Options{
		DefaultScale: scale,
		Validate:     p.Validate,
		Translator:   p.Translator,
		Logger:       p.Logger,
		MailSvc:      p.MailSvc,
		Audit:        p.AuditSvc,
	}), nil
}

// newGradingDirectory exposes the school directory to the grading service.
func newGradingDirectory(dir *school.Directory) grading.Directory { return dir }

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		UserSvc:    p.UserSvc,
		SchoolSvc:  p.SchoolSvc,
		GradingSvc: p.GradingSvc,
		AuditSvc:   p.AuditSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container. app prefixes the lines of the main logger.
func New(app string) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(func(conf *core.Config) core.Logger { return newLogger(conf, app+" : ") }))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStores))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(audit.NewService))
	must(c.Provide(school.NewService))
	must(c.Provide(school.NewDirectory))
	must(c.Provide(newGradingDirectory))
	must(c.Provide(newGradingService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
