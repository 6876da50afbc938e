// Command manage runs operator tasks against the blog database.
//
//	manage migrate
//	manage create-group -title Cats -slug cats -description "All about cats"
//	manage delete-user -username leo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Keril-png/hw05-final/internal/config"
	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/repository/database"
	"github.com/Keril-png/hw05-final/internal/repository/redis"
	"github.com/Keril-png/hw05-final/internal/service"

	"gorm.io/gorm"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config file] <migrate|create-group|delete-user> [flags]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error.Fatalf("load config: %v", err)
	}
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Error.Fatalf("connect database: %v", err)
	}

	ctx := context.Background()
	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "migrate":
		err = database.AutoMigrate(db)
	case "create-group":
		err = createGroup(ctx, db, args)
	case "delete-user":
		err = deleteUser(ctx, db, cfg, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error.Fatalf("%s: %v", cmd, err)
	}
	log.Info.Printf("%s: done", cmd)
}

func createGroup(ctx context.Context, db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("create-group", flag.ExitOnError)
	title := fs.String("title", "", "group title")
	slug := fs.String("slug", "", "unique slug used in /group/<slug>/")
	description := fs.String("description", "", "group description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	g, err := service.NewGroupService(db).Create(ctx, *title, *slug, *description)
	if err != nil {
		return err
	}
	log.Info.Printf("created group %d %q at /group/%s/", g.ID, g.Title, g.Slug)
	return nil
}

// deleteUser 级联删除帖子、评论和关注关系，并清掉登录 token
func deleteUser(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("delete-user", flag.ExitOnError)
	username := fs.String("username", "", "user to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("-username is required")
	}
	rdb, err := redis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()
	return service.NewUserService(db, rdb, nil).Delete(ctx, *username)
}
