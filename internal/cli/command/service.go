package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/garagebook-go/internal/core/domain"
)

// ServiceCommand returns the service type subcommand group.
func ServiceCommand() *cli.Command {
	return &cli.Command{
		Name:    "service",
		Aliases: []string{"svc"},
		Usage:   "Manage bookable service types",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List service types",
				Action:  serviceList,
			},
			{
				Name:      "get",
				Usage:     "Show one service type",
				ArgsUsage: "ID",
				Action:    serviceGet,
			},
			{
				Name:  "create",
				Usage: "Add a service type",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Service name", Required: true},
					&cli.StringFlag{Name: "description", Usage: "Service description"},
				},
				Action: serviceCreate,
			},
			{
				Name:      "update",
				Usage:     "Rename or describe a service type",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New name"},
					&cli.StringFlag{Name: "description", Usage: "New description"},
				},
				Action: serviceUpdate,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a service type",
				ArgsUsage: "ID",
				Action:    serviceDelete,
			},
		},
	}
}

func serviceList(c *cli.Context) error {
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	services, err := rt.Catalog.Load(c.Context)
	if err != nil {
		return err
	}
	if len(services) == 0 && !machineReadable(c) {
		fmt.Fprintln(c.App.Writer, "No service types")
		return nil
	}
	return render(c, services)
}

func serviceGet(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if _, err := rt.Catalog.Load(c.Context); err != nil {
		return err
	}
	st, err := rt.Catalog.Get(id)
	if err != nil {
		return err
	}
	return render(c, st)
}

func serviceCreate(c *cli.Context) error {
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	created, err := rt.Catalog.Create(c.Context, domain.NewServiceType{
		Name:        c.String("name"),
		Description: c.String("description"),
	})
	if err != nil {
		return err
	}
	notice(c, "Created service type %s", created.ID)
	return render(c, created)
}

func serviceUpdate(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}

	var in domain.ServiceTypeUpdate
	if c.IsSet("name") {
		v := c.String("name")
		in.Name = &v
	}
	if c.IsSet("description") {
		v := c.String("description")
		in.Description = &v
	}
	if in.Name == nil && in.Description == nil {
		return usageError("nothing to update, pass --name or --description")
	}

	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if _, err := rt.Catalog.Load(c.Context); err != nil {
		return err
	}
	updated, err := rt.Catalog.Update(c.Context, id, in)
	if err != nil {
		return err
	}
	if updated.ID.IsZero() {
		if cached, err := rt.Catalog.Get(id); err == nil {
			updated = cached
		}
	}
	notice(c, "Updated service type %s", id)
	return render(c, updated)
}

func serviceDelete(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	rt, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if err := rt.Catalog.Delete(c.Context, id); err != nil {
		return err
	}
	notice(c, "Deleted service type %s", id)
	return nil
}
