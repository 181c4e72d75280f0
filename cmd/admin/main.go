// Command admin provides staff management utilities for yatube.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/service"
)

const listLimit = 100

const usageText = `Usage:
  admin groups list [search]
  admin groups create <slug> <title> [description]
  admin groups delete <slug>
  admin posts list [search]
  admin posts set-group <id> <slug|->
  admin posts delete <id>
  admin comments list [search]
  admin comments delete <id>
  admin follows list
  admin follows delete <id>
  admin users promote <username>
  admin users demote <username>
  admin cache clear
`

var errUsage = errors.New("invalid arguments")

func main() {
	if len(os.Args) < 3 {
		fmt.Print(usageText)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	rdb := cache.InitRedis(cfg.RedisURL)

	svc := service.NewAdminService(service.AdminRepos{
		Users:    repository.NewUserRepository(db),
		Groups:   repository.NewGroupRepository(db),
		Posts:    repository.NewPostRepository(db),
		Comments: repository.NewCommentRepository(db),
		Follows:  repository.NewFollowRepository(db),
	}, service.NewImageService(cfg), cache.NewPageCache(rdb, cfg.CacheTTL()), rdb)

	if err := run(context.Background(), svc, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Print(usageText)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *service.AdminService, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}
	rest := args[2:]

	switch args[0] + " " + args[1] {
	case "groups list":
		rows, err := svc.Groups(ctx, optional(rest, 0))
		if err != nil {
			return err
		}
		w := table(out, "ID", "TITLE", "DESCRIPTION", "SLUG", "POSTS")
		for _, r := range rows {
			row(w, r.Group.ID, r.Group.Title, models.Truncate(r.Group.Description, 40), r.Group.Slug, r.Posts)
		}
		return w.Flush()

	case "groups create":
		if len(rest) < 2 {
			return errUsage
		}
		group, err := svc.CreateGroup(ctx, rest[0], rest[1], optional(rest, 2))
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(out, "Created group %s (ID: %d)\n", group.Slug, group.ID)

	case "groups delete":
		if len(rest) < 1 {
			return errUsage
		}
		if err := svc.DeleteGroup(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted group %s\n", rest[0])

	case "posts list":
		rows, err := svc.Posts(ctx, optional(rest, 0), listLimit)
		if err != nil {
			return err
		}
		w := table(out, "ID", "CREATED", "TEXT", "AUTHOR", "GROUP", "IMAGE", "COMMENTS")
		for _, r := range rows {
			group := ""
			if r.Post.Group != nil {
				group = r.Post.Group.Slug
			}
			row(w, r.Post.ID, stamp(r.Post.Created), r.Post.String(), r.Post.Author.Username, group, r.Post.Image, r.Comments)
		}
		return w.Flush()

	case "posts set-group":
		if len(rest) < 2 {
			return errUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		if err := svc.SetPostGroup(ctx, id, rest[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Post %d moved to %s\n", id, service.OrEmpty(strings.Trim(rest[1], "-")))

	case "posts delete":
		return deleteByID(ctx, out, rest, "post", svc.DeletePost)

	case "comments list":
		comments, err := svc.Comments(ctx, optional(rest, 0), listLimit)
		if err != nil {
			return err
		}
		w := table(out, "ID", "TEXT", "CREATED", "AUTHOR", "POST")
		for _, c := range comments {
			row(w, c.ID, c.String(), stamp(c.Created), c.Author.Username, c.PostID)
		}
		return w.Flush()

	case "comments delete":
		return deleteByID(ctx, out, rest, "comment", svc.DeleteComment)

	case "follows list":
		follows, err := svc.Follows(ctx, listLimit)
		if err != nil {
			return err
		}
		w := table(out, "ID", "USER", "AUTHOR", "CREATED")
		for _, f := range follows {
			row(w, f.ID, f.User.Username, f.Author.Username, stamp(f.Created))
		}
		return w.Flush()

	case "follows delete":
		return deleteByID(ctx, out, rest, "follow", svc.DeleteFollow)

	case "users promote", "users demote":
		if len(rest) < 1 {
			return errUsage
		}
		staff := args[1] == "promote"
		if err := svc.SetStaff(ctx, rest[0], staff); err != nil {
			return err
		}
		fmt.Fprintf(out, "User %s staff=%t\n", rest[0], staff)

	case "cache clear":
		n, err := svc.ClearPageCache(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Cleared %d cached pages\n", n)

	default:
		return errUsage
	}
	return nil
}

func deleteByID(ctx context.Context, out io.Writer, rest []string, kind string, del func(context.Context, uint) error) error {
	if len(rest) < 1 {
		return errUsage
	}
	id, err := parseID(rest[0])
	if err != nil {
		return err
	}
	if err := del(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %s %d\n", kind, id)
	return nil
}

func describe(err error) error {
	if fields, ok := models.FormErrorsOf(err); ok {
		return errors.New(fields.String())
	}
	return err
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func stamp(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func table(out io.Writer, headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return w
}

func row(w io.Writer, cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = service.OrEmpty(fmt.Sprint(c))
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}
