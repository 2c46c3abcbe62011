package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/domain/auth"
	"github.com/Jordy7598/intranet-rosmo-sub001/internal/platform/config"
)

type seedEmployee struct {
	key        string
	name       string
	hireDate   time.Time
	annualDays int
	supervisor string
}

type seedUser struct {
	email    string
	role     auth.Role
	employee string
}

var seedEmployees = []seedEmployee{
	{key: "director", name: "Marta Vega", hireDate: time.Date(2015, time.February, 2, 0, 0, 0, 0, time.UTC), annualDays: 20},
	{key: "hr", name: "Helena Ramos", hireDate: time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC), annualDays: 15, supervisor: "director"},
	{key: "supervisor", name: "Sara Ruiz", hireDate: time.Date(2018, time.June, 1, 0, 0, 0, 0, time.UTC), annualDays: 15, supervisor: "director"},
	{key: "employee", name: "Ana Lopez", hireDate: time.Date(2022, time.January, 10, 0, 0, 0, 0, time.UTC), annualDays: 15, supervisor: "supervisor"},
	{key: "reader", name: "Rita Soto", hireDate: time.Date(2023, time.September, 4, 0, 0, 0, 0, time.UTC), annualDays: 15, supervisor: "supervisor"},
}

var seedUsers = []seedUser{
	{email: "admin@intranet.local", role: auth.RoleAdmin, employee: "director"},
	{email: "hr@intranet.local", role: auth.RoleHR, employee: "hr"},
	{email: "supervisor@intranet.local", role: auth.RoleSupervisor, employee: "supervisor"},
	{email: "employee@intranet.local", role: auth.RoleEmployee, employee: "employee"},
	{email: "reader@intranet.local", role: auth.RoleReader, employee: "reader"},
}

// Seed loads a small demo organisation into an empty database. It does
// nothing once any user exists.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, log *zap.Logger) error {
	var users int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users").Scan(&users); err != nil {
		return err
	}
	if users > 0 {
		log.Info("seed skipped, users already present")
		return nil
	}

	hash, err := auth.HashPassword(cfg.SeedPassword)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		ids := map[string]string{}
		for _, emp := range seedEmployees {
			var supervisorID *string
			if emp.supervisor != "" {
				id := ids[emp.supervisor]
				supervisorID = &id
			}
			var id string
			if err := tx.QueryRow(ctx, `
        INSERT INTO employees (full_name, hire_date, annual_days, supervisor_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id::text
      `, emp.name, emp.hireDate, emp.annualDays, supervisorID).Scan(&id); err != nil {
				return err
			}
			ids[emp.key] = id
		}

		for _, u := range seedUsers {
			if _, err := tx.Exec(ctx, `
        INSERT INTO users (employee_id, email, password_hash, role)
        VALUES ($1,$2,$3,$4)
      `, ids[u.employee], u.email, hash, string(u.role)); err != nil {
				return err
			}
		}
		log.Info("seeded demo organisation", zap.Int("employees", len(seedEmployees)), zap.Int("users", len(seedUsers)))
		return nil
	})
}
