package telegram

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-telegram/bot/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/update.schema.json
var updateSchemaJSON []byte

const updateSchemaURL = "mem://telegram/update.schema.json"

var (
	updateSchemaOnce sync.Once
	updateSchema     *jsonschema.Schema
	updateSchemaErr  error
)

func compiledUpdateSchema() (*jsonschema.Schema, error) {
	updateSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(updateSchemaURL, bytes.NewReader(updateSchemaJSON)); err != nil {
			updateSchemaErr = fmt.Errorf("add update schema: %w", err)
			return
		}
		updateSchema, updateSchemaErr = compiler.Compile(updateSchemaURL)
	})
	return updateSchema, updateSchemaErr
}

// ParseUpdate validates a webhook body against the update schema and decodes it.
func ParseUpdate(raw []byte) (models.Update, error) {
	schema, err := compiledUpdateSchema()
	if err != nil {
		return models.Update{}, err
	}

	var document any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return models.Update{}, fmt.Errorf("decode update: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return models.Update{}, fmt.Errorf("invalid update: %w", err)
	}

	var update models.Update
	if err := json.Unmarshal(raw, &update); err != nil {
		return models.Update{}, fmt.Errorf("decode update: %w", err)
	}
	return update, nil
}
