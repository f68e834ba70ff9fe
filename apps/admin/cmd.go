package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	db         *sqlx.DB // nil with the memory engine
	usrSvc     *user.Service
	gradingSvc *grading.Service
	auditSvc   *audit.Service
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME [-email EMAIL] [-school ID] [-roles r1,r2] - add a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  setscale -school ID -file FILE - replace a school's grading scale (.json or .toml)")
	fmt.Fprintln(cli.out, "  showscale -school ID - print a school's grading scale")
	fmt.Fprintln(cli.out, "  grade -student ID -course ID -score SCORE -grader USERNAME - submit a grade")
	fmt.Fprintln(cli.out, "  importgrades -file FILE -grader USERNAME - submit grades from a student_id,course_id,score CSV")
	fmt.Fprintln(cli.out, "  report -student ID [-term TERM] - print a student's academic report")
	fmt.Fprintln(cli.out, "  auditlog [-user ID] [-action ACTION] [-limit N] - print the latest audit entries")
}

// promptPassword reads a password from stdin without echoing it.
func (cli *commandLine) promptPassword(usage func()) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserSchool := addUserCmd.String("school", "", "The school of the user. Empty for superusers.")
	addUserRoles := addUserCmd.String("roles", "", "Comma separated roles: superuser, admin, staff, student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	setScaleCmd := flag.NewFlagSet("setscale", flag.ExitOnError)
	setScaleSchool := setScaleCmd.String("school", "", "The school ID.")
	setScaleFile := setScaleCmd.String("file", "", "The scale file, JSON or TOML.")

	showScaleCmd := flag.NewFlagSet("showscale", flag.ExitOnError)
	showScaleSchool := showScaleCmd.String("school", "", "The school ID.")

	gradeCmd := flag.NewFlagSet("grade", flag.ExitOnError)
	gradeStudent := gradeCmd.String("student", "", "The student ID.")
	gradeCourse := gradeCmd.String("course", "", "The course ID.")
	gradeScore := gradeCmd.String("score", "", "The score, between 0 and 100.")
	gradeGrader := gradeCmd.String("grader", "", "The username or email of the teacher of the course.")

	importGradesCmd := flag.NewFlagSet("importgrades", flag.ExitOnError)
	importGradesFile := importGradesCmd.String("file", "", "The CSV file: student_id,course_id,score per row.")
	importGradesGrader := importGradesCmd.String("grader", "", "The username or email of the teacher of the courses.")

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportStudent := reportCmd.String("student", "", "The student ID.")
	reportTerm := reportCmd.String("term", "", "The current term. Defaults to the latest term.")

	auditLogCmd := flag.NewFlagSet("auditlog", flag.ExitOnError)
	auditLogUser := auditLogCmd.String("user", "", "Only the entries of this user ID.")
	auditLogAction := auditLogCmd.String("action", "", "Only the entries of this action.")
	auditLogLimit := auditLogCmd.Int("limit", 20, "The number of entries to print.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd.Usage)
		if err != nil {
			return err
		}
		return cli.addUser(user.NewUser{
			SchoolID:        *addUserSchool,
			Name:            *addUserName,
			Username:        *addUserUname,
			Email:           *addUserEmail,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           splitList(*addUserRoles),
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd.Usage)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "setscale":
		if err := setScaleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setScaleSchool == "" || *setScaleFile == "" {
			setScaleCmd.Usage()
			return errHelp
		}
		return cli.setScale(*setScaleSchool, *setScaleFile)

	case "showscale":
		if err := showScaleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *showScaleSchool == "" {
			showScaleCmd.Usage()
			return errHelp
		}
		return cli.showScale(*showScaleSchool)

	case "grade":
		if err := gradeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *gradeStudent == "" || *gradeCourse == "" || *gradeScore == "" || *gradeGrader == "" {
			gradeCmd.Usage()
			return errHelp
		}
		return cli.grade(*gradeStudent, *gradeCourse, *gradeScore, *gradeGrader)

	case "importgrades":
		if err := importGradesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importGradesFile == "" || *importGradesGrader == "" {
			importGradesCmd.Usage()
			return errHelp
		}
		return cli.importGrades(*importGradesFile, *importGradesGrader)

	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportStudent == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.report(*reportStudent, *reportTerm)

	case "auditlog":
		if err := auditLogCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.auditLog(audit.QueryFilter{UserID: *auditLogUser, Action: *auditLogAction, Limit: *auditLogLimit})

	default:
		cli.printUsage()
		return errHelp
	}
}

// describe flattens validation errors into a single line error.
func describe(err error, translator ut.Translator) error {
	err = core.TranslateValidationErrors(err, translator)
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) || len(vErr.Fields) == 0 {
		return err
	}
	msgs := make([]string, 0, len(vErr.Fields))
	for _, fld := range vErr.Fields {
		msgs = append(msgs, fld.Field+": "+fld.Error)
	}
	return errors.New(strings.Join(msgs, "; "))
}

func splitList(s string) []string {
	var res []string
	for _, item := range strings.Split(s, ",") {
		if item = core.CleanString(item, true /* lower */); item != "" {
			res = append(res, item)
		}
	}
	return res
}
