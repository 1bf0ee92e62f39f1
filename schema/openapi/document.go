package openapi

import (
	"fmt"
	"sort"
)

type documentBuilder struct {
	config     generatorConfig
	components *categoryComponents
	names      []string
}

func newDocumentBuilder(config generatorConfig, components *categoryComponents, names []string) *documentBuilder {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return &documentBuilder{
		config:     config,
		components: components,
		names:      sorted,
	}
}

func (b *documentBuilder) build() (map[string]any, error) {
	paths := map[string]any{
		b.config.path: map[string]any{
			"get": b.operation("listSettings", "Effective values of every setting", nil,
				response("200", "Current settings", b.content(b.settingsSchema()))),
			"put": b.operation("updateSettings", "Write one or more settings",
				map[string]any{"required": true, "content": b.content(b.settingsSchema())},
				response("204", "Settings updated"),
				response("422", "A value was rejected by its type or validator")),
		},
	}
	if len(b.names) > 0 {
		paths[b.config.path+"/{name}"] = map[string]any{
			"parameters": []any{b.nameParameter()},
			"delete": b.operation("resetSetting", "Restore a setting to its default", nil,
				response("204", "Setting reset"),
				response("404", "Unknown setting")),
		}
	}

	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   paths,
	}
	if schemas := b.components.schemas(); schemas != nil {
		document["components"] = map[string]any{"schemas": schemas}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

// settingsSchema composes the category components into the settings object.
func (b *documentBuilder) settingsSchema() map[string]any {
	refs := b.components.refs()
	if len(refs) == 0 {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	return map[string]any{"allOf": refs}
}

func (b *documentBuilder) content(schema map[string]any) map[string]any {
	return map[string]any{
		b.config.contentType: map[string]any{"schema": schema},
	}
}

func (b *documentBuilder) nameParameter() map[string]any {
	enum := make([]any, 0, len(b.names))
	for _, name := range b.names {
		enum = append(enum, name)
	}
	return map[string]any{
		"name":     "name",
		"in":       "path",
		"required": true,
		"schema":   map[string]any{"type": "string", "enum": enum},
	}
}

type responseEntry struct {
	status string
	body   map[string]any
}

func response(status, description string, content ...map[string]any) responseEntry {
	body := map[string]any{"description": description}
	if len(content) > 0 && content[0] != nil {
		body["content"] = content[0]
	}
	return responseEntry{status: status, body: body}
}

func (b *documentBuilder) operation(id, summary string, requestBody map[string]any, responses ...responseEntry) map[string]any {
	out := make(map[string]any, len(responses))
	for _, r := range responses {
		out[r.status] = r.body
	}
	operation := map[string]any{
		"operationId": id,
		"summary":     summary,
		"responses":   out,
	}
	if requestBody != nil {
		operation["requestBody"] = requestBody
	}
	return operation
}

var writeMethods = map[string]bool{"put": true, "post": true, "patch": true}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			if method == "parameters" {
				continue
			}
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if responses, _ := operation["responses"].(map[string]any); len(responses) == 0 {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
			if !writeMethods[method] {
				continue
			}
			requestBody, _ := operation["requestBody"].(map[string]any)
			if content, _ := requestBody["content"].(map[string]any); len(content) == 0 {
				return fmt.Errorf("openapi: operation %s %s requestBody missing content", method, pathKey)
			}
		}
	}
	return nil
}
