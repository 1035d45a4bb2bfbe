package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-merit/internal/controller"
	"github.com/noah-isme/sma-merit/internal/models"
)

// ErrQuit is returned by Parse for the quit command.
var ErrQuit = errors.New("quit")

// ErrNeedsSecret marks commands whose arguments must be read without echo.
// The shell prompts for them and builds the command itself.
var ErrNeedsSecret = errors.New("secret input required")

// Help lists the shell commands.
const Help = `commands:
  login | logout | passwd
  set <student_id|name|points|reason|date> <value>   clear
  add <award|deduction|offset>
  view <summary|detail>   search [term]   refresh
  show <student_id> [name]
  edit <id>   save field=value; ...   delete <id>   confirm   close
  reset   backups   restore <name>   export
  help | quit`

// Parse turns one shell line into a command. state supplies the open modal for
// confirm and save.
func Parse(line string, state controller.State) (controller.Command, error) {
	verb, rest := splitVerb(line)
	switch verb {
	case "":
		return nil, nil
	case "quit", "exit":
		return nil, ErrQuit
	case "login", "passwd":
		return nil, ErrNeedsSecret
	case "logout":
		return controller.Logout{}, nil
	case "set":
		field, value := splitVerb(rest)
		if field == "" {
			return nil, fmt.Errorf("usage: set <field> <value>")
		}
		return controller.EditForm{Field: controller.Field(field), Value: value}, nil
	case "clear":
		return controller.ClearForm{}, nil
	case "add":
		return controller.AddRecord{Type: models.PointType(rest)}, nil
	case "view":
		return controller.SetViewMode{Mode: models.ViewMode(rest)}, nil
	case "search":
		return controller.Search{Term: rest}, nil
	case "refresh":
		return controller.Refresh{}, nil
	case "show":
		id, name := splitVerb(rest)
		if id == "" {
			return nil, fmt.Errorf("usage: show <student_id> [name]")
		}
		return controller.ShowStudentDetail{StudentID: id, Name: name}, nil
	case "edit":
		id, err := parseID(rest)
		if err != nil {
			return nil, err
		}
		return controller.BeginEdit{ID: id}, nil
	case "save":
		return parseSave(rest, state)
	case "delete":
		id, err := parseID(rest)
		if err != nil {
			return nil, err
		}
		return controller.BeginDelete{ID: id}, nil
	case "confirm":
		if state.Modal != nil && state.Modal.Kind == controller.ModalResetConfirm {
			return controller.ConfirmReset{}, nil
		}
		return controller.ConfirmDelete{}, nil
	case "close":
		return controller.CloseModal{}, nil
	case "reset":
		return controller.BeginReset{}, nil
	case "backups":
		return controller.OpenBackups{}, nil
	case "restore":
		return controller.RestoreBackup{Name: rest}, nil
	case "export":
		return controller.Export{}, nil
	default:
		return nil, fmt.Errorf("unknown command %q, type 'help'", verb)
	}
}

// parseSave overlays field=value pairs onto the open edit draft.
func parseSave(rest string, state controller.State) (controller.Command, error) {
	if state.Modal == nil || state.Modal.Kind != controller.ModalEdit {
		return nil, fmt.Errorf("no record is being edited")
	}
	d := state.Modal.Edit
	cmd := controller.SubmitEdit{
		StudentID: d.StudentID,
		Name:      d.Name,
		Points:    d.Points,
		Reason:    d.Reason,
		PointType: d.PointType,
		Date:      d.Date,
	}
	for _, pair := range strings.Split(rest, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected field=value, got %q", pair)
		}
		switch strings.TrimSpace(key) {
		case "student_id":
			cmd.StudentID = value
		case "name":
			cmd.Name = value
		case "points":
			cmd.Points = value
		case "reason":
			cmd.Reason = value
		case "type":
			cmd.PointType = models.PointType(strings.TrimSpace(value))
		case "date":
			cmd.Date = value
		default:
			return nil, fmt.Errorf("unknown field %q", key)
		}
	}
	return cmd, nil
}

func splitVerb(line string) (string, string) {
	line = strings.TrimLeft(line, " \t")
	verb, rest, _ := strings.Cut(line, " ")
	return strings.TrimSpace(verb), strings.TrimRight(rest, "\r\n")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", raw)
	}
	return id, nil
}
