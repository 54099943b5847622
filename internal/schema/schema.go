// Package schema generates JSON Schemas for the run event stream, the run
// request body and the .whitelabel.yaml config file.
package schema

import (
	"github.com/invopop/jsonschema"

	"github.com/deixis/whitelabel/internal/config"
	"github.com/deixis/whitelabel/internal/server"
)

// Wire shapes of a run event. runner.Event encodes itself by hand, so the
// schema is reflected from these instead.
type outputEvent struct {
	Kind string `json:"kind" jsonschema:"required,enum=stdout,enum=stderr"`
	Text string `json:"text" jsonschema:"required,description=A chunk of script output."`
}

type errorEvent struct {
	Kind    string `json:"kind" jsonschema:"required,enum=error"`
	Message string `json:"message" jsonschema:"required,description=Why the run ended without an exit status."`
}

type exitEvent struct {
	Kind string `json:"kind" jsonschema:"required,enum=exit"`
	Code int    `json:"code" jsonschema:"required,description=Exit status of the script."`
}

// RunEvent returns the schema of one line of the run stream.
func RunEvent() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true, Anonymous: true}
	variant := func(v any, title string) *jsonschema.Schema {
		s := r.Reflect(v)
		s.Version = ""
		s.ID = ""
		s.Title = title
		return s
	}
	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Run event",
		Description: "One line of the application/x-ndjson stream returned by POST /api/run-whitelabel. Exactly one error or exit event ends a run.",
		OneOf: []*jsonschema.Schema{
			variant(&outputEvent{}, "Output"),
			variant(&errorEvent{}, "Error"),
			variant(&exitEvent{}, "Exit"),
		},
	}
}

// RunRequest returns the schema of the POST /api/run-whitelabel body.
func RunRequest() *jsonschema.Schema {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	s := r.Reflect(&server.RunRequest{})
	s.Title = "Run request"
	s.Description = "Body of POST /api/run-whitelabel."
	return s
}

// Config returns the schema of .whitelabel.yaml.
func Config() *jsonschema.Schema {
	r := &jsonschema.Reflector{FieldNameTag: "yaml", ExpandedStruct: true, RequiredFromJSONSchemaTags: true}
	s := r.Reflect(&config.Config{})
	s.Title = "whitelabel configuration"
	s.Description = "Schema for " + config.FileName + ", the optional project configuration file."
	return s
}

// Named pairs every generated schema with its output file name.
type Named struct {
	File   string
	Schema *jsonschema.Schema
}

// All returns every schema in a stable order.
func All() []Named {
	return []Named{
		{File: "run-event.json", Schema: RunEvent()},
		{File: "run-request.json", Schema: RunRequest()},
		{File: "config.json", Schema: Config()},
	}
}
