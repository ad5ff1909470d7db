package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/scheduler"
)

const timeLayout = "2006-01-02 15:04:05"

func renderStatus(s scheduler.Status) error {
	pterm.DefaultSection.Println("Queue")
	q := s.Queue
	if err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Waiting", "Active", "Delayed", "Completed", "Failed", "Paused"},
		{itoa(q.Waiting), itoa(q.Active), itoa(q.Delayed), itoa(q.Completed), itoa(q.Failed), strconv.FormatBool(q.Paused)},
	}).Render(); err != nil {
		return err
	}

	pterm.DefaultSection.Println("Auto-update")
	st := s.Settings
	enabled := pterm.Red("disabled")
	if st.AutoUpdateEnabled {
		enabled = pterm.Green("enabled")
	}
	rows := pterm.TableData{
		{"State", enabled},
		{"Interval", fmt.Sprintf("%d minutes", st.CollectionInterval)},
		{"Source", st.Locator().String()},
		{"Last collection", formatTime(st.LastCollectionAt)},
		{"Next collection", formatTime(s.NextCollectionAt)},
	}
	if err := pterm.DefaultTable.WithData(rows).Render(); err != nil {
		return err
	}

	if len(s.Registrations) == 0 {
		return nil
	}
	pterm.DefaultSection.Println("Schedule")
	data := pterm.TableData{{"Key", "Interval", "Source", "Registered", "Next run"}}
	for _, r := range s.Registrations {
		registered := r.RegisteredAt
		data = append(data, []string{
			r.Key,
			fmt.Sprintf("%dm", r.Interval),
			r.Source.String(),
			formatTime(&registered),
			formatTime(r.NextRun),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderJobs(jobs []*queue.Job) error {
	if len(jobs) == 0 {
		pterm.Info.Println("No jobs")
		return nil
	}
	data := pterm.TableData{{"ID", "Schedule", "State", "Attempts", "Progress", "Created", "Finished", "Error"}}
	for _, j := range jobs {
		data = append(data, []string{
			shortID(j.ID),
			j.Schedule,
			colorState(j.State),
			fmt.Sprintf("%d/%d", j.Attempts, j.MaxAttempts()),
			fmt.Sprintf("%d%%", j.Progress),
			j.CreatedAt.Local().Format(timeLayout),
			formatTime(j.FinishedAt),
			truncate(j.LastError, 60),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderAlerts(list []alerts.Alert) error {
	if len(list) == 0 {
		pterm.Info.Println("No alerts")
		return nil
	}
	data := pterm.TableData{{"ID", "Severity", "Message", "Source", "Error", "Created", "Ack"}}
	for _, a := range list {
		ack := ""
		if a.Acknowledged {
			ack = "yes"
		}
		data = append(data, []string{
			strconv.FormatInt(a.ID, 10),
			colorSeverity(a.Severity),
			a.Message,
			a.Details.Source.String(),
			truncate(a.Details.Error, 60),
			a.CreatedAt.Local().Format(timeLayout),
			ack,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func colorState(s queue.State) string {
	switch s {
	case queue.StateCompleted:
		return pterm.Green(string(s))
	case queue.StateFailed:
		return pterm.Red(string(s))
	case queue.StateActive:
		return pterm.LightCyan(string(s))
	case queue.StateDelayed:
		return pterm.Yellow(string(s))
	default:
		return string(s)
	}
}

func colorSeverity(s alerts.Severity) string {
	switch s {
	case alerts.SeverityCritical:
		return pterm.Red(string(s))
	case alerts.SeverityWarning:
		return pterm.Yellow(string(s))
	default:
		return string(s)
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func itoa(n int) string { return strconv.Itoa(n) }
