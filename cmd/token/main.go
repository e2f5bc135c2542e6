// Command token issues a signed bearer token for local runs and the simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/auth"
	"github.com/ukydev/factory-log/internal/config"
	"github.com/ukydev/factory-log/internal/models"
)

func main() {
	id := flag.String("id", "", "actor id (required)")
	role := flag.String("role", string(models.RoleOperator), "actor role")
	department := flag.String("department", "", "actor department")
	flag.Parse()

	if *id == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	token, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry).GenerateToken(models.Actor{
		ID:         *id,
		Role:       models.Role(*role),
		Department: *department,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to generate token")
	}
	fmt.Println(token)
}
