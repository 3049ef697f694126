package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	TypeHello:     "hello.schema.json",
	TypeWelcome:   "welcome.schema.json",
	TypeObs:       "obs.schema.json",
	TypeAct:       "act.schema.json",
	TypeChat:      "chat.schema.json",
	TypeTerritory: "territory.schema.json",
	TypeError:     "error.schema.json",
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		for _, name := range schemaFiles {
			b, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemasErr = err
				return
			}
			if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
				schemasErr = fmt.Errorf("%s: %w", name, err)
				return
			}
		}
		out := make(map[string]*jsonschema.Schema, len(schemaFiles))
		for typ, name := range schemaFiles {
			s, err := c.Compile(name)
			if err != nil {
				schemasErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			out[typ] = s
		}
		schemas = out
	})
	return schemas, schemasErr
}

// Validate checks a raw frame against the schema registered for typ.
func Validate(typ string, b []byte) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}
	s, ok := all[typ]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// DecodeHost validates and decodes one host frame. The result is one of
// WelcomeMsg, ObsMsg, ChatMsg, TerritoryMsg or ErrorMsg.
func DecodeHost(b []byte) (any, error) {
	base, err := DecodeBase(b)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	switch base.Type {
	case TypeWelcome:
		return decodeAs[WelcomeMsg](base.Type, b)
	case TypeObs:
		return decodeAs[ObsMsg](base.Type, b)
	case TypeChat:
		return decodeAs[ChatMsg](base.Type, b)
	case TypeTerritory:
		return decodeAs[TerritoryMsg](base.Type, b)
	case TypeError:
		return decodeAs[ErrorMsg](base.Type, b)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, base.Type)
	}
}

func decodeAs[T any](typ string, b []byte) (any, error) {
	if err := Validate(typ, b); err != nil {
		return nil, fmt.Errorf("validate %s: %w", typ, err)
	}
	var m T
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return m, nil
}
