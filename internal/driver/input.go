package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/prismctl/prismctl/internal/connection"
	"github.com/prismctl/prismctl/internal/specbuilder"
)

// Action is what a module invocation does.
type Action int

const (
	ActionPresent Action = iota
	ActionAbsent
	ActionList
)

func (a Action) String() string {
	switch a {
	case ActionAbsent:
		return "absent"
	case ActionList:
		return "list"
	}
	return "present"
}

// ParseAction maps a state parameter to an action. An empty state is present.
func ParseAction(state string) (Action, error) {
	switch strings.ToLower(state) {
	case "", "present":
		return ActionPresent, nil
	case "absent":
		return ActionAbsent, nil
	case "list", "info":
		return ActionList, nil
	}
	return ActionPresent, ErrInvalidInput.New(fmt.Sprintf("unknown state %q", state))
}

// Input is one module invocation.
type Input struct {
	Action  Action
	UUID    string
	Wait    bool
	Timeout time.Duration
	Check   bool

	// Params are the resource parameters: the invocation input without unset
	// values, connection keys and the driver keys above.
	Params map[string]any
}

type commonParams struct {
	State   string `mapstructure:"state"`
	Wait    *bool  `mapstructure:"wait"`
	Timeout int    `mapstructure:"timeout" validate:"gte=0"`
	UUID    string `mapstructure:"uuid" validate:"omitempty,uuid"`
}

var driverKeys = []string{"state", "wait", "timeout"}

// ParseInput splits raw module parameters into an Input. wait defaults to true.
// The uuid is taken from "uuid" or, failing that, from metadata.uuid.
func ParseInput(raw map[string]any, check bool) (Input, error) {
	params := specbuilder.Prune(raw)

	c, err := specbuilder.Decode[commonParams](params)
	if err != nil {
		return Input{}, ErrInvalidInput.MsgErr(err.Error(), err)
	}
	action, err := ParseAction(c.State)
	if err != nil {
		return Input{}, err
	}

	in := Input{
		Action:  action,
		UUID:    c.UUID,
		Wait:    c.Wait == nil || *c.Wait,
		Timeout: time.Duration(c.Timeout) * time.Second,
		Check:   check,
		Params:  params,
	}
	if in.UUID == "" {
		if md, ok := params["metadata"].(map[string]any); ok {
			in.UUID, _ = md["uuid"].(string)
		}
	}
	for _, k := range connection.Keys {
		delete(in.Params, k)
	}
	for _, k := range driverKeys {
		delete(in.Params, k)
	}
	return in, nil
}
