package models

import (
	"log"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Stripboard{},
		&Strip{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
