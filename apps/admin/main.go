package main

import (
	"log"
	"os"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:      db,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(conf, usrRepo, emailsvc.NewConsoleService(conf, logger)),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
