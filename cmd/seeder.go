package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/expense-workflow/internal/policy"
	"github.com/frahmantamala/expense-workflow/internal/report"
	reportPostgres "github.com/frahmantamala/expense-workflow/internal/report/postgres"
	"github.com/frahmantamala/expense-workflow/internal/user"
	userPostgres "github.com/frahmantamala/expense-workflow/internal/user/postgres"
	"github.com/frahmantamala/expense-workflow/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed one user per role and a few demo reports driven through the approval workflow.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configDir)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		limits, err := policy.LimitsFromConfig(cfg.Policy)
		if err != nil {
			log.Fatalf("invalid policy config: %v", err)
		}

		lg := logger.LoggerWrapper()
		ctx := context.Background()

		if clearData {
			if err := gormDB.Exec("TRUNCATE audit_entries, exception_review_items, exception_reviews, expense_items, expense_reports RESTART IDENTITY CASCADE").Error; err != nil {
				log.Fatalf("failed to clear workflow tables: %v", err)
			}
			fmt.Println("Cleared workflow tables")
		}

		users := user.NewService(userPostgres.NewUserRepository(gormDB), lg)
		seeded := make(map[user.Role]*user.User, len(seedUsers))
		for _, u := range seedUsers {
			stored, err := users.EnsureUser(ctx, &user.User{
				Email:      u.Email,
				Name:       u.Name,
				Role:       u.Role,
				Department: u.Department,
				IsActive:   true,
			})
			if err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Email, err)
			}
			seeded[u.Role] = stored
			fmt.Printf("Seeded user %s (%s) id=%d\n", stored.Email, stored.Role, stored.ID)
		}

		var reportCount int64
		if err := gormDB.Table("expense_reports").Count(&reportCount).Error; err != nil {
			log.Fatalf("failed to count reports: %v", err)
		}
		if reportCount > 0 {
			fmt.Println("Reports already exist; run with --clear to reseed them")
			return
		}

		svc := report.NewService(
			reportPostgres.NewStore(gormDB),
			reportPostgres.NewStatsReader(db),
			policy.NewEngine(limits),
			nil,
			lg,
		)
		if err := seedReports(ctx, svc, seeded); err != nil {
			log.Fatalf("failed to seed reports: %v", err)
		}
		fmt.Println("Demo reports seeded successfully")
	},
}

var seedUsers = []struct {
	Email      string
	Name       string
	Role       user.Role
	Department string
}{
	{"employee@mail.com", "Avery Employee", user.RoleEmployee, "Sales"},
	{"manager@mail.com", "Morgan Manager", user.RoleManager, "Sales"},
	{"cfo@mail.com", "Casey CFO", user.RoleCFO, "Finance"},
	{"ceo@mail.com", "Jordan CEO", user.RoleCEO, "Executive"},
}

func seedItem(date, category, description, amount string) report.ItemDTO {
	return report.ItemDTO{
		Date:        date,
		Category:    category,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
	}
}

func seedReports(ctx context.Context, svc *report.Service, users map[user.Role]*user.User) error {
	employee := users[user.RoleEmployee]
	manager := users[user.RoleManager]
	cfo := users[user.RoleCFO]

	start := time.Now().UTC().AddDate(0, 0, -14)
	day := func(offset int) string {
		return start.AddDate(0, 0, offset).Format("2006-01-02")
	}

	// stays a draft
	if _, err := svc.CreateReport(ctx, report.CreateReportDTO{
		SubmitterID:   employee.ID,
		Title:         "Chicago client visit",
		Destination:   "Chicago, United States",
		DepartureDate: day(0),
		ReturnDate:    day(2),
		Items: []report.ItemDTO{
			seedItem(day(0), "Transportation", "Airport taxi", "45.00"),
			seedItem(day(1), "Meals", "Client lunch", "38.50"),
		},
	}); err != nil {
		return fmt.Errorf("draft report: %w", err)
	}

	// waits on the manager
	pending, err := svc.CreateReport(ctx, report.CreateReportDTO{
		SubmitterID: employee.ID,
		Title:       "Office supplies",
		Items: []report.ItemDTO{
			seedItem(day(3), "Office", "Printer toner", "89.99"),
		},
	})
	if err != nil {
		return fmt.Errorf("pending report: %w", err)
	}
	if _, err := svc.SubmitReport(ctx, pending.ID, report.SubmitReportDTO{SubmitterID: employee.ID}); err != nil {
		return fmt.Errorf("submit pending report: %w", err)
	}

	// breaks the hotel cap and lands in exception review
	flagged, err := svc.CreateReport(ctx, report.CreateReportDTO{
		SubmitterID:   employee.ID,
		Title:         "Tokyo partner summit",
		Destination:   "Tokyo, Japan",
		DepartureDate: day(4),
		ReturnDate:    day(7),
		Items: []report.ItemDTO{
			seedItem(day(4), "Hotel", "Conference hotel", "320.00"),
			seedItem(day(5), "Meals", "Team dinner", "60.00"),
		},
	})
	if err != nil {
		return fmt.Errorf("flagged report: %w", err)
	}
	hotel := policy.ItemCode(policy.CodeHotelAboveCap, flagged.Items[0].ID).String()
	if _, err := svc.SubmitReport(ctx, flagged.ID, report.SubmitReportDTO{
		SubmitterID: employee.ID,
		Reasons: []report.WarningReasonDTO{
			{Code: hotel, Reason: "Only hotel within walking distance of the venue"},
		},
	}); err != nil {
		return fmt.Errorf("submit flagged report: %w", err)
	}

	// walks the whole chain
	approved, err := svc.CreateReport(ctx, report.CreateReportDTO{
		SubmitterID:   employee.ID,
		Title:         "Austin training",
		Destination:   "Austin, USA",
		DepartureDate: day(8),
		ReturnDate:    day(9),
		Items: []report.ItemDTO{
			seedItem(day(8), "Airfare", "Return flight", "320.00"),
			seedItem(day(8), "Hotel", "Downtown hotel", "180.00"),
		},
	})
	if err != nil {
		return fmt.Errorf("approved report: %w", err)
	}
	if _, err := svc.SubmitReport(ctx, approved.ID, report.SubmitReportDTO{SubmitterID: employee.ID}); err != nil {
		return fmt.Errorf("submit approved report: %w", err)
	}
	if _, err := svc.ApproveReport(ctx, approved.ID, report.ApprovalDTO{ApproverID: manager.ID, Comment: "Within budget"}); err != nil {
		return fmt.Errorf("manager approval: %w", err)
	}
	if _, err := svc.ApproveReport(ctx, approved.ID, report.ApprovalDTO{ApproverID: cfo.ID, Comment: "Approved"}); err != nil {
		return fmt.Errorf("cfo approval: %w", err)
	}

	return nil
}
