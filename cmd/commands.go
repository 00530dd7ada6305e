package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"TodayBrief/db"
	"TodayBrief/internal/brief"
	"TodayBrief/utils"
)

func reportCmd(env *environment) *cobra.Command {
	var send bool
	cmd := &cobra.Command{
		Use:       "report [group]",
		Short:     "Print today's report for a group, optionally posting it to the report chats",
		Long:      "Print today's report for one of: " + strings.Join(brief.GroupNames, ", ") + ". The default is general.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: brief.GroupNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			group := ""
			if len(args) == 1 {
				group = args[0]
			}
			g, err := brief.LookupGroup(group, env.cfg.Groups)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, env)
			if err != nil {
				return err
			}
			defer a.Close()
			svc := newServices(a, env)

			reports, err := svc.reporter.Build(ctx, "cli", g.Filter)
			if err != nil {
				return err
			}
			printReports(reports)

			if !send {
				return nil
			}
			if len(env.cfg.ReportChatIDs) == 0 {
				return errors.New("REPORT_CHAT_IDS is empty, nothing to send to")
			}
			tg, err := newTelegram(env.cfg)
			if err != nil {
				return err
			}
			return newBot(tg, a, svc, env).SendReport(ctx, g.Name, env.cfg.ReportChatIDs)
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "post the report to REPORT_CHAT_IDS")
	return cmd
}

func printReports(reports []brief.UserReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"User", "Handle", "Project", "Task", "Due"})
	for _, rep := range reports {
		for _, e := range rep.Entries {
			due := "-"
			if !e.Due.IsZero() {
				due = e.Due.Format(utils.DueDateLayout)
			}
			tw.AppendRow(table.Row{rep.UserName, rep.Handle, e.Project, e.Name, due})
		}
	}
	tw.AppendFooter(table.Row{"", "", "", "users", len(reports)})
	tw.Render()
}

func usersCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List team members and whether a permanent token is provisioned for them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.cfg.AdminToken == "" || env.cfg.TeamGID == "" {
				return errors.New("ASANA_TOKEN and TEAM_GID are required")
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, env)
			if err != nil {
				return err
			}
			defer a.Close()

			members, err := a.asana.TeamUsers(ctx, env.cfg.AdminToken, env.cfg.TeamGID)
			if err != nil {
				return err
			}
			provisioned, err := a.store.ProvisionedUsers(ctx)
			if err != nil {
				return err
			}
			has := make(map[string]bool, len(provisioned))
			for _, u := range provisioned {
				has[u.Name] = u.UserToken != ""
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"GID", "Name", "Token"})
			for _, m := range members {
				token := "missing"
				if has[m.Name] {
					token = "present"
				}
				tw.AppendRow(table.Row{m.GID, m.Name, token})
			}
			tw.Render()
			return nil
		},
	}
}

func checkCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to postgres, redis, Asana and Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var failed bool
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Dependency", "Status"})
			row := func(name string, err error) {
				status, bad := checkStatus(err)
				failed = failed || bad
				tw.AppendRow(table.Row{name, status})
			}

			store, err := db.Open(env.cfg.DatabaseURL, env.cfg.Location, env.log.New("component", "db"))
			if err == nil {
				err = store.Ping(ctx)
				defer store.Close()
			}
			row("postgres", err)

			rdb, err := utils.NewRedis(ctx, env.cfg.RedisURL)
			if err == nil {
				defer rdb.Close()
			}
			row("redis", err)

			row("asana", checkAsana(ctx, env))

			tg, err := newTelegram(env.cfg)
			if err == nil {
				env.log.Debug("telegram bot", "name", tg.Self.UserName)
			}
			row("telegram", err)

			tw.Render()
			if failed {
				return errors.New("some dependencies are unavailable")
			}
			return nil
		},
	}
}

// errSkipped marks a check that was not run; it does not fail the command.
var errSkipped = errors.New("skipped")

func checkStatus(err error) (status string, failed bool) {
	switch {
	case err == nil:
		return "ok", false
	case errors.Is(err, errSkipped):
		return err.Error(), false
	}
	return err.Error(), true
}

func checkAsana(ctx context.Context, env *environment) error {
	if env.cfg.AdminToken == "" {
		return fmt.Errorf("%w, ASANA_TOKEN not set", errSkipped)
	}
	client, err := newAsanaClient(env)
	if err != nil {
		return err
	}
	u, err := client.CurrentUser(ctx, env.cfg.AdminToken)
	if err != nil {
		return err
	}
	env.log.Debug("asana admin token", "user", u.Name)
	return nil
}
