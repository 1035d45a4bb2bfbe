// Package console renders controller state as plain-text tables and parses
// shell input into controller commands.
package console

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"

	"github.com/noah-isme/sma-merit/internal/controller"
	"github.com/noah-isme/sma-merit/internal/models"
)

// Renderer writes state snapshots and notifications to an io.Writer.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewRenderer builds a renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Notify prints a notification as soon as it is raised.
func (r *Renderer) Notify(n controller.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := "ok"
	if n.Level == controller.LevelError {
		tag = "error"
	}
	fmt.Fprintf(r.out, "[%s] %s\n", tag, n.Message)
}

// Render prints the screen for state. An open modal is drawn below the main table.
func (r *Renderer) Render(state controller.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state.Screen == controller.ScreenLogin {
		fmt.Fprintln(r.out, "== merit points :: login ==")
		if state.LoginError != "" {
			fmt.Fprintf(r.out, "! %s\n", state.LoginError)
		}
		fmt.Fprintln(r.out, "type 'login' to enter the password")
		if state.Modal != nil {
			r.modal(*state.Modal)
		}
		return
	}

	fmt.Fprintf(r.out, "== merit points :: %s view ==\n", state.ViewMode)
	fmt.Fprintf(r.out, "students: %d  records: %d", state.Stats.Students, state.Stats.Records)
	if state.SearchTerm != "" {
		fmt.Fprintf(r.out, "  search: %q", state.SearchTerm)
	}
	fmt.Fprintln(r.out)

	if state.ViewMode == models.ViewSummary {
		r.summaries(state.Summaries)
	} else {
		r.records(state.Records, true)
	}
	r.form(state.Form)
	if state.Modal != nil {
		r.modal(*state.Modal)
	}
}

func (r *Renderer) summaries(rows []models.Summary) {
	if len(rows) == 0 {
		fmt.Fprintln(r.out, "(no students)")
		return
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STUDENT\tNAME\tMERIT\tDEMERIT\tOFFSET\tTOTAL\tLAST ACTIVITY")
	for _, s := range rows {
		last := ""
		if !s.LastActivity.IsZero() {
			last = s.LastActivity.Local().Format(models.LastActivityLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n", s.StudentID, s.Name, s.Merit, s.Demerit, s.Offset, models.SignedTotal(s.Total), last)
	}
	_ = w.Flush()
}

func (r *Renderer) records(rows []models.Record, withID bool) {
	if len(rows) == 0 {
		fmt.Fprintln(r.out, "(no records)")
		return
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	if withID {
		fmt.Fprint(w, "ID\t")
	}
	fmt.Fprintln(w, "DATE\tSTUDENT\tNAME\tTYPE\tPOINTS\tREASON")
	for _, rec := range rows {
		if withID {
			fmt.Fprintf(w, "%d\t", rec.ID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", rec.Date, rec.StudentID, rec.Name, rec.PointType, models.SignedTotal(rec.Points), rec.Reason)
	}
	_ = w.Flush()
}

func (r *Renderer) form(f controller.Form) {
	if f == (controller.Form{}) {
		return
	}
	fmt.Fprintf(r.out, "form: id=%q name=%q points=%q reason=%q date=%q\n", f.StudentID, f.Name, f.Points, f.Reason, f.Date)
}

func (r *Renderer) modal(m controller.Modal) {
	switch m.Kind {
	case controller.ModalStudentDetail:
		fmt.Fprintf(r.out, "-- %s (%s) --\n", m.StudentName, m.StudentID)
		r.records(m.Records, false)
	case controller.ModalEdit:
		e := m.Edit
		if m.Target != nil {
			fmt.Fprintf(r.out, "-- edit record %d --\n", m.Target.ID)
		}
		w := tabwriter.NewWriter(r.out, 0, 0, 1, ' ', 0)
		for _, kv := range [][2]string{
			{"student_id", e.StudentID}, {"name", e.Name}, {"points", e.Points},
			{"reason", e.Reason}, {"type", string(e.PointType)}, {"date", e.Date},
		} {
			fmt.Fprintf(w, "%s\t%s\n", kv[0], strconv.Quote(kv[1]))
		}
		_ = w.Flush()
		fmt.Fprintln(r.out, "use 'save field=value; ...' or 'close'")
	case controller.ModalDeleteConfirm, controller.ModalResetConfirm:
		fmt.Fprintf(r.out, "-- %s --\n", m.Message)
		fmt.Fprintln(r.out, "type 'confirm' or 'close'")
	case controller.ModalChangePassword:
		fmt.Fprintln(r.out, "-- change password --")
	case controller.ModalBackups:
		fmt.Fprintln(r.out, "-- backups --")
		if len(m.Backups) == 0 {
			fmt.Fprintln(r.out, "(no backups)")
			return
		}
		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tRECORDS\tCREATED")
		for _, b := range m.Backups {
			fmt.Fprintf(w, "%s\t%d\t%s\n", b.Name, b.Records, b.CreatedAt.Local().Format(models.LastActivityLayout))
		}
		_ = w.Flush()
	}
}
