package main

import (
	"fmt"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type StatusCommand struct {
	Id string `arg:"" help:"Upload id"`
}

type DeleteCommand struct {
	Id string `arg:"" help:"Upload id"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *StatusCommand) Run(app *Globals) error {
	client, err := app.Client()
	if err != nil {
		return err
	}
	status, err := client.Status(app.ctx, cmd.Id)
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func (cmd *DeleteCommand) Run(app *Globals) error {
	client, err := app.Client()
	if err != nil {
		return err
	}
	return client.Delete(app.ctx, cmd.Id)
}
