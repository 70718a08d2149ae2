package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baiirun/phi/internal/config"
	"github.com/baiirun/phi/internal/db"
	"github.com/baiirun/phi/internal/github"
	"github.com/baiirun/phi/internal/model"
	"github.com/baiirun/phi/internal/service"
	phisync "github.com/baiirun/phi/internal/sync"
	"github.com/baiirun/phi/internal/toggl"
	"github.com/baiirun/phi/internal/tui"
	"github.com/baiirun/phi/internal/views"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
	yellow = color.New(color.FgYellow)
)

// openStore opens and initializes the database at the default path.
func openStore() (*db.DB, error) {
	path, err := db.DefaultPath()
	if err != nil {
		return nil, err
	}
	store, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func withService(run func(svc *service.Service) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return run(service.New(store))
}

var rootCmd = &cobra.Command{
	Use:   "phi",
	Short: "A task tracker with GitHub sync",
	Long:  `phi tracks tasks, projects and tags locally and pulls in the GitHub issues and pull requests assigned to you.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand: open the TUI.
		return runTUI()
	},
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a new task in the inbox",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *service.Service) error {
			task, err := svc.CreateTask(strings.Join(args, " "))
			if err != nil {
				return err
			}
			green.Printf("added %s\n", task.Title)
			faint.Println(task.ID)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:       "list [inbox|today|upcoming|anytime|review|completed]",
	Short:     "List tasks in a view bucket",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"inbox", "today", "upcoming", "anytime", "review", "completed"},
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket := "inbox"
		if len(args) == 1 {
			bucket = args[0]
		}
		return withService(func(svc *service.Service) error {
			tasks, err := svc.GetAllTasks()
			if err != nil {
				return err
			}
			projects, err := svc.GetAllProjects()
			if err != nil {
				return err
			}

			today := time.Now().UTC()
			var picked []model.Task
			switch bucket {
			case "inbox":
				picked = views.Inbox(tasks)
			case "today":
				picked = views.Today(tasks, today)
			case "upcoming":
				picked = views.Upcoming(tasks, today)
			case "anytime":
				picked = views.Anytime(tasks)
			case "review":
				picked = views.Review(tasks, today)
			case "completed":
				picked = views.Completed(tasks)
			default:
				return fmt.Errorf("unknown bucket: %s", bucket)
			}
			views.SortByDueDate(picked)
			printTasks(picked, projects, today)
			return nil
		})
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *service.Service) error {
			task, err := svc.GetTask(args[0])
			if err != nil {
				return err
			}
			if task == nil {
				return fmt.Errorf("task not found: %s", args[0])
			}
			if err := svc.SetStatus(task, model.StatusCompleted); err != nil {
				return err
			}
			green.Printf("completed %s\n", task.Title)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *service.Service) error {
			if err := svc.DeleteTask(args[0]); err != nil {
				return err
			}
			green.Println("deleted")
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *service.Service) error {
			task, err := svc.GetTask(args[0])
			if err != nil {
				return err
			}
			if task == nil {
				return fmt.Errorf("task not found: %s", args[0])
			}

			fmt.Println(task.Title)
			faint.Println(task.ID)
			fmt.Printf("status: %s  priority: %s\n", task.Status, task.Priority)
			if task.Kind != "" {
				fmt.Printf("kind: %s\n", task.Kind)
			}
			if task.DueDate != nil {
				fmt.Printf("due: %s\n", task.DueDate.Format("2006-01-02"))
			}
			if task.CompletedAt != nil {
				fmt.Printf("completed: %s\n", task.CompletedAt.Format(time.RFC3339))
			}
			if task.ContextURL != "" {
				fmt.Printf("url: %s\n", task.ContextURL)
			}
			if task.Notes != "" {
				fmt.Printf("\n%s\n", task.Notes)
			}
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tasks by title or notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *service.Service) error {
			tasks, err := svc.GetAllTasks()
			if err != nil {
				return err
			}
			projects, err := svc.GetAllProjects()
			if err != nil {
				return err
			}
			matches := views.Search(tasks, strings.Join(args, " "))
			printTasks(matches, projects, time.Now().UTC())
			return nil
		})
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *service.Service) error {
			projects, err := svc.GetAllProjects()
			if err != nil {
				return err
			}
			tasks, err := svc.GetAllTasks()
			if err != nil {
				return err
			}
			for _, p := range projects {
				open := len(views.ByProject(tasks, p.ID))
				fmt.Printf("%s %s", p.DisplayIcon(), p.Name)
				faint.Printf("  %d open  %s\n", open, p.ID)
			}
			return nil
		})
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(svc *service.Service) error {
			tags, err := svc.GetAllTags()
			if err != nil {
				return err
			}
			for _, tag := range tags {
				fmt.Printf("#%s", tag.Name)
				faint.Printf("  %s\n", tag.ID)
			}
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch GitHub items and reconcile them into the task store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.GitHubToken == "" {
			return fmt.Errorf("github token not configured: set %s or github_token in the config file", config.EnvGitHubToken)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		client := github.NewClient(cfg.GitHubToken)
		fetcher := phisync.NewFetcher(client, zap.L())
		reconciler := phisync.NewReconciler(store, zap.L())

		ch, ok := fetcher.Start(context.Background())
		if !ok {
			return fmt.Errorf("sync already in progress")
		}
		res := <-ch
		if res.Err != nil {
			// Reconciliation is skipped entirely; local state is untouched.
			return res.Err
		}

		tasks, err := store.GetAllTasks()
		if err != nil {
			return err
		}
		projects, err := store.GetAllProjects()
		if err != nil {
			return err
		}

		stats := reconciler.Reconcile(tasks, projects, res.Snapshot)
		if stats.IsNoop() {
			faint.Println("synced, nothing changed")
			return nil
		}
		green.Printf("synced: %d new, %d updated, %d closed, %d projects created\n",
			stats.TasksCreated, stats.TasksUpdated, stats.TasksClosed, stats.ProjectsCreated)
		return nil
	},
}

var togglCmd = &cobra.Command{
	Use:   "toggl",
	Short: "Show tracked time for the past week",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cfg.HasToggl() {
			return fmt.Errorf("toggl token not configured: set %s or toggl_token in the config file", config.EnvTogglToken)
		}

		client := toggl.NewClient(cfg.TogglToken)
		data, err := client.FetchAll(context.Background(), 7)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := 6; i >= 0; i-- {
			day := now.AddDate(0, 0, -i)
			secs := data.DurationForDate(day, now)
			fmt.Printf("%s  ", day.Format("Mon 01-02"))
			if secs > 0 {
				green.Println(toggl.FormatHours(secs))
			} else {
				faint.Println(toggl.FormatHours(secs))
			}
		}

		rows := data.DurationByProject(cfg.TogglHiddenProjects, now)
		if len(rows) > 0 {
			fmt.Println()
			for _, row := range rows {
				fmt.Printf("%s", row.Name)
				faint.Printf("  %s\n", toggl.FormatHours(row.Seconds))
			}
		}

		days := data.EntriesByDate()
		if len(days) > 0 {
			fmt.Println()
			for _, day := range days {
				faint.Println(day.Date.Format("2006-01-02"))
				for _, entry := range day.Entries {
					desc := entry.Description
					if desc == "" {
						desc = "(no description)"
					}
					fmt.Printf("  %s", desc)
					faint.Printf("  %s\n", entry.FormatDurationShort(now))
				}
			}
		}
		return nil
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func runTUI() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := service.New(store)
	reconciler := phisync.NewReconciler(store, zap.L())

	var (
		fetcher     *phisync.Fetcher
		togglClient *toggl.Client
		togglHidden []string
	)
	if cfg, err := config.Load(); err == nil {
		if cfg.GitHubToken != "" {
			fetcher = phisync.NewFetcher(github.NewClient(cfg.GitHubToken), zap.L())
		}
		if cfg.HasToggl() {
			togglClient = toggl.NewClient(cfg.TogglToken)
			togglHidden = cfg.TogglHiddenProjects
		}
	}

	program := tea.NewProgram(tui.New(svc, reconciler, fetcher, togglClient, togglHidden), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func printTasks(tasks []model.Task, projects []model.Project, today time.Time) {
	if len(tasks) == 0 {
		faint.Println("nothing here")
		return
	}
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	for _, task := range tasks {
		marker := "·"
		if task.IsCompleted() {
			marker = green.Sprint("✓")
		} else if task.IsOverdue(today) {
			marker = red.Sprint("!")
		}
		fmt.Printf("%s %s", marker, task.Title)
		if task.Priority != model.PriorityNone {
			yellow.Printf(" %s", task.Priority.Symbol())
		}
		if name := names[task.ProjectID]; name != "" {
			faint.Printf(" (%s)", name)
		}
		if task.DueDate != nil {
			faint.Printf(" %s", task.DueDate.Format("2006-01-02"))
		}
		faint.Printf("  %s", task.ID)
		fmt.Println()
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err == nil {
		zap.ReplaceGlobals(logger)
		defer func() { _ = logger.Sync() }()
	}

	rootCmd.AddCommand(addCmd, listCmd, doneCmd, deleteCmd, showCmd, searchCmd,
		projectsCmd, tagsCmd, syncCmd, togglCmd, tuiCmd)

	if err := rootCmd.Execute(); err != nil {
		red.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
