package main

import (
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/apps/api/di/dig"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/user"
)

func main() {
	logger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	var code int
	c := dig_container.New("ADMIN")
	err := c.Invoke(func(
		conf *core.Config,
		db *sqlx.DB,
		closer *dig_container.Closer,
		usrSvc *user.Service,
		gradingSvc *grading.Service,
		auditSvc *audit.Service,
		validate *validator.Validate,
		translator ut.Translator,
	) {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Printf("closing stores: %v", err)
			}
		}()

		core.InitValidators(validate, translator)
		user.InitValidators(validate, translator)
		grading.InitValidators(validate, translator)

		cli := commandLine{
			conf:       conf,
			db:         db,
			usrSvc:     usrSvc,
			gradingSvc: gradingSvc,
			auditSvc:   auditSvc,
			validate:   validate,
			translator: translator,
			out:        os.Stdout,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				logger.Printf("\nerror: %s\n", err)
			}
			code = 1
		}
	})
	if err != nil {
		logger.Fatal(err)
	}
	os.Exit(code)
}
