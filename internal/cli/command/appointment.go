package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/garagebook-go/internal/core/availability"
	"github.com/yndnr/garagebook-go/internal/core/domain"
)

// AppointmentCommand returns the appointment subcommand group.
func AppointmentCommand() *cli.Command {
	return &cli.Command{
		Name:    "appointment",
		Aliases: []string{"appt"},
		Usage:   "Manage appointments",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List appointments",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "date",
						Aliases: []string{"d"},
						Usage:   "Only appointments on this day (YYYY-MM-DD)",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only appointments with this status",
					},
				},
				Action: appointmentList,
			},
			{
				Name:      "get",
				Usage:     "Show one appointment",
				ArgsUsage: "ID",
				Action:    appointmentGet,
			},
			{
				Name:  "create",
				Usage: "Book an appointment",
				Flags: append(appointmentFieldFlags(),
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the appointment from a JSON or YAML file ('-' for stdin); flags override it",
					},
				),
				Action: appointmentCreate,
			},
			{
				Name:      "update",
				Usage:     "Change fields of an appointment",
				ArgsUsage: "ID",
				Flags: append(appointmentFieldFlags(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "pending, confirmed, completed or cancelled",
					},
				),
				Action: appointmentUpdate,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete an appointment",
				ArgsUsage: "ID",
				Action:    appointmentDelete,
			},
			{
				Name:  "slots",
				Usage: "Show bookable hours of a day",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "date",
						Aliases:  []string{"d"},
						Usage:    "Day to check (YYYY-MM-DD)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "service",
						Usage: "Service type ID",
					},
					&cli.BoolFlag{
						Name:  "free",
						Usage: "Only show available hours",
					},
				},
				Action: appointmentSlots,
			},
			{
				Name:  "calendar",
				Usage: "Show appointments as calendar events",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "date",
						Aliases: []string{"d"},
						Usage:   "Only events on this day (YYYY-MM-DD)",
					},
				},
				Action: appointmentCalendar,
			},
		},
	}
}

// appointmentFlagKeys maps field flags onto payload keys.
var appointmentFlagKeys = []struct{ flag, key string }{
	{"name", "name"},
	{"email", "email"},
	{"phone", "phone"},
	{"vehicle", "vehicle"},
	{"at", "appointment_time"},
	{"service", "service_type_id"},
}

func appointmentFieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Customer name"},
		&cli.StringFlag{Name: "email", Usage: "Customer email"},
		&cli.StringFlag{Name: "phone", Usage: "Customer phone"},
		&cli.StringFlag{Name: "vehicle", Usage: "Vehicle description"},
		&cli.StringFlag{Name: "at", Usage: "Start time (YYYY-MM-DDTHH:MM)"},
		&cli.StringFlag{Name: "service", Usage: "Service type ID"},
	}
}

// appointmentRow is the table view of an appointment.
type appointmentRow struct {
	ID      domain.ID                `json:"id"`
	When    domain.Timestamp         `json:"when"`
	Name    string                   `json:"name"`
	Service string                   `json:"service"`
	Status  domain.AppointmentStatus `json:"status"`
	Email   string                   `json:"email" table:"wide"`
	Phone   string                   `json:"phone" table:"wide"`
	Vehicle string                   `json:"vehicle" table:"wide"`
}

func appointmentRows(items []domain.Appointment) []appointmentRow {
	rows := make([]appointmentRow, 0, len(items))
	for _, a := range items {
		rows = append(rows, appointmentRow{
			ID:      a.ID,
			When:    a.AppointmentTime,
			Name:    a.Name,
			Service: a.ServiceName(),
			Status:  a.Status,
			Email:   a.Email,
			Phone:   a.Phone,
			Vehicle: a.Vehicle,
		})
	}
	return rows
}

func renderAppointments(c *cli.Context, items []domain.Appointment) error {
	if machineReadable(c) {
		return render(c, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(c.App.Writer, "No appointments")
		return nil
	}
	return render(c, appointmentRows(items))
}

func renderAppointment(c *cli.Context, a domain.Appointment) error {
	if machineReadable(c) {
		return render(c, a)
	}
	return render(c, appointmentRows([]domain.Appointment{a})[0])
}

func appointmentList(c *cli.Context) error {
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if _, err := rt.Appointments.Load(c.Context); err != nil {
		return err
	}

	items := rt.Appointments.List()
	if date := c.String("date"); date != "" {
		if _, err := domain.ParseDate(date); err != nil {
			return err
		}
		items = rt.Appointments.ByDate()[date]
	}
	if s := c.String("status"); s != "" {
		status, err := domain.ParseAppointmentStatus(s)
		if err != nil {
			return err
		}
		filtered := items[:0:0]
		for _, a := range items {
			if a.Status == status {
				filtered = append(filtered, a)
			}
		}
		items = filtered
	}
	return renderAppointments(c, items)
}

func appointmentGet(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if _, err := rt.Appointments.Load(c.Context); err != nil {
		return err
	}
	a, err := rt.Appointments.Get(id)
	if err != nil {
		return err
	}
	return renderAppointment(c, a)
}

func appointmentCreate(c *cli.Context) error {
	data := make(map[string]any)
	if path := c.String("file"); path != "" {
		var err error
		if data, err = readPayload(c, path); err != nil {
			return err
		}
	}
	for _, f := range appointmentFlagKeys {
		if c.IsSet(f.flag) {
			data[f.key] = c.String(f.flag)
		}
	}
	if at, ok := data["appointment_time"].(string); ok {
		ts, err := domain.ParseTimestamp(at)
		if err != nil {
			return err
		}
		data["appointment_time"] = ts.Wire()
	}

	in, err := domain.SanitizeAppointment(data)
	if err != nil {
		return err
	}

	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	created, err := rt.Appointments.Create(c.Context, in)
	if err != nil {
		return err
	}
	notice(c, "Booked appointment %s", created.ID)
	return renderAppointment(c, created)
}

func appointmentUpdate(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	var in domain.AppointmentUpdate
	str := func(flag string) *string {
		if !c.IsSet(flag) {
			return nil
		}
		v := strings.TrimSpace(c.String(flag))
		return &v
	}
	in.Name = str("name")
	in.Email = str("email")
	in.Phone = str("phone")
	in.Vehicle = str("vehicle")
	if v := str("service"); v != nil {
		sid := domain.ID(*v)
		in.ServiceTypeID = &sid
	}
	if v := str("at"); v != nil {
		ts, err := domain.ParseTimestamp(*v)
		if err != nil {
			return err
		}
		in.AppointmentTime = &ts
	}
	if v := str("status"); v != nil {
		status, err := domain.ParseAppointmentStatus(*v)
		if err != nil {
			return err
		}
		in.Status = &status
	}
	if in.IsEmpty() {
		return usageError("nothing to update, pass at least one field flag")
	}

	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	updated, err := rt.Appointments.Update(c.Context, id, in)
	if err != nil {
		return err
	}
	notice(c, "Updated appointment %s", updated.ID)
	return renderAppointment(c, updated)
}

func appointmentDelete(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if err := rt.Appointments.Delete(c.Context, id); err != nil {
		return err
	}
	notice(c, "Deleted appointment %s", id)
	return nil
}

func appointmentSlots(c *cli.Context) error {
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	slots, err := rt.Appointments.AvailableSlots(c.Context, c.String("date"), domain.ID(c.String("service")))
	if err != nil {
		return err
	}
	if c.Bool("free") {
		slots = availability.FreeSlots(slots)
	}
	return render(c, slots)
}

func appointmentCalendar(c *cli.Context) error {
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if _, err := rt.Appointments.Load(c.Context); err != nil {
		return err
	}

	events := rt.Appointments.CalendarEvents()
	if date := c.String("date"); date != "" {
		day, err := domain.ParseDate(date)
		if err != nil {
			return err
		}
		filtered := events[:0:0]
		for _, e := range events {
			y, m, d := e.Start.In(day.Location()).Date()
			if dy, dm, dd := day.Date(); y == dy && m == dm && d == dd {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	return render(c, events)
}

// readPayload decodes a JSON or YAML object from path, or stdin for "-".
func readPayload(c *cli.Context, path string) (map[string]any, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(c.App.Reader)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	data := make(map[string]any)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("payload in " + path).WithCause(err)
	}
	return data, nil
}

func requireID(c *cli.Context) (domain.ID, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", usageError("%s requires an ID argument", c.Command.Name)
	}
	if c.NArg() > 1 {
		return "", usageError("%s takes a single ID", c.Command.Name)
	}
	return domain.ID(id), nil
}
