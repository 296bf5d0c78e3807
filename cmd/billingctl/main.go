package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appbilling "github.com/wintercreative/lagoon/internal/application/billing"
	appgroup "github.com/wintercreative/lagoon/internal/application/group"
	"github.com/wintercreative/lagoon/internal/domain/billing"
	"github.com/wintercreative/lagoon/internal/domain/group"
	"github.com/wintercreative/lagoon/internal/infrastructure/cache"
	"github.com/wintercreative/lagoon/internal/infrastructure/config"
	"github.com/wintercreative/lagoon/internal/infrastructure/logger"
	"github.com/wintercreative/lagoon/internal/infrastructure/persistence"
	"github.com/wintercreative/lagoon/internal/infrastructure/telemetry"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	var dir group.Directory = persistence.NewGormGroupDirectory(db.DB)
	if cfg.Cache.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		dir = cache.NewCachedGroupDirectory(dir, client, cfg.Cache.TTL, log)
	}

	groupService := appgroup.NewService(dir, log)
	billingService := appbilling.NewService(
		groupService,
		persistence.NewGormProjectRepository(db.DB),
		persistence.NewGormUsageRepository(db.DB),
		billing.DefaultTable(),
		log,
		tp.Tracer("billingctl"),
	)

	if err := run(ctx, command, args[1:], groupService, billingService); err != nil {
		log.Fatal("Command failed", zap.String("command", command), zap.Error(err))
	}
}

func run(ctx context.Context, command string, args []string, groups *appgroup.Service, bills *appbilling.Service) error {
	switch command {
	case "group-cost":
		if len(args) < 2 {
			return fmt.Errorf("usage: billingctl group-cost <group> <YYYY-MM>")
		}
		month, err := billing.ParseMonth(args[1])
		if err != nil {
			return err
		}
		report, err := bills.GroupCost(ctx, args[0], month)
		if err != nil {
			return err
		}
		return printJSON(report)

	case "orphaned-projects":
		projects, err := bills.ProjectsNotInAnyBillingGroup(ctx)
		if err != nil {
			return err
		}
		for _, p := range projects {
			fmt.Printf("%d\t%s\n", p.ID, p.Name)
		}
		return nil

	case "empty-billing-groups":
		empty, err := bills.BillingGroupsWithoutProjects(ctx)
		if err != nil {
			return err
		}
		for _, g := range empty {
			fmt.Println(g.Name)
		}
		return nil

	case "delete-empty-billing-groups":
		deleted, err := bills.DeleteBillingGroupsWithoutProjects(ctx)
		for _, g := range deleted {
			fmt.Println("deleted", g.Name)
		}
		return err

	case "list-groups":
		all, err := groups.LoadAllGroups(ctx)
		if err != nil {
			return err
		}
		for _, g := range all {
			fmt.Printf("%s\t%s\t%s\n", g.ID, g.Path, g.Kind)
		}
		return nil

	case "add-group":
		if len(args) < 1 {
			return fmt.Errorf("usage: billingctl add-group <name> [parent]")
		}
		input := appgroup.AddGroupInput{Name: args[0]}
		if len(args) > 1 {
			input.ParentGroup = args[1]
		}
		g, err := groups.AddGroup(ctx, input)
		if err != nil {
			return err
		}
		fmt.Println("created", g.ID, g.Path)
		return nil

	case "add-billing-group":
		if len(args) < 2 {
			return fmt.Errorf("usage: billingctl add-billing-group <name> <currency> [software]")
		}
		software := ""
		if len(args) > 2 {
			software = args[2]
		}
		g, err := groups.AddBillingGroup(ctx, args[0], args[1], software)
		if err != nil {
			return err
		}
		fmt.Println("created", g.ID, g.Name)
		return nil

	case "delete-group":
		if len(args) < 1 {
			return fmt.Errorf("usage: billingctl delete-group <group>")
		}
		return groups.DeleteGroup(ctx, args[0])

	case "add-project":
		projectID, ref, err := projectArgs(command, args)
		if err != nil {
			return err
		}
		g, err := groups.AddProjectToGroup(ctx, projectID, ref)
		if err != nil {
			return err
		}
		fmt.Println(g.Name, "projects:", g.Projects.String())
		return nil

	case "remove-project":
		projectID, ref, err := projectArgs(command, args)
		if err != nil {
			return err
		}
		g, err := groups.RemoveProjectFromGroup(ctx, projectID, ref)
		if err != nil {
			return err
		}
		fmt.Println(g.Name, "projects:", g.Projects.String())
		return nil

	case "move-project":
		projectID, ref, err := projectArgs(command, args)
		if err != nil {
			return err
		}
		g, err := groups.UpdateProjectBillingGroup(ctx, projectID, ref)
		if err != nil {
			return err
		}
		fmt.Println(g.Name, "projects:", g.Projects.String())
		return nil

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func projectArgs(command string, args []string) (int, string, error) {
	if len(args) < 2 {
		return 0, "", fmt.Errorf("usage: billingctl %s <project-id> <group>", command)
	}
	projectID, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid project id: %s", args[0])
	}
	return projectID, args[1], nil
}

func printJSON(v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}

func printUsage() {
	fmt.Println(`Lagoon Billing CLI

Usage:
  billingctl <command> [arguments]

Billing commands:
  group-cost <group> <YYYY-MM>   Price a billing group's usage for a month
  orphaned-projects              List projects no billing group owns
  empty-billing-groups           List billing groups without projects
  delete-empty-billing-groups    Delete billing groups without projects

Group commands:
  list-groups                    List every group with its path
  add-group <name> [parent]      Create a group, optionally under a parent
  add-billing-group <name> <currency> [software]
  delete-group <group>           Delete a group and its subtree
  add-project <id> <group>       Attach a project to a group
  remove-project <id> <group>    Detach a project from a group
  move-project <id> <group>      Move a project to another billing group

Configuration is read from config.toml and LAGOON_* environment variables.`)
}
