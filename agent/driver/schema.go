package driver

import (
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/generative-ai-go/genai"

	"bookline/agent/contract"
)

// parameterSchema resolves a tool's parameter definition to an OpenAPI
// schema. Tools with no declared parameters get an empty object so both
// backends accept them.
func parameterSchema(ti *schema.ToolInfo) (*openapi3.Schema, error) {
	if ti.ParamsOneOf == nil {
		return &openapi3.Schema{
			Type:       openapi3.TypeObject,
			Properties: openapi3.Schemas{},
		}, nil
	}
	sc, err := ti.ParamsOneOf.ToOpenAPIV3()
	if err != nil {
		return nil, fmt.Errorf("%w: tool %s parameters: %v", contract.ErrValidation, ti.Name, err)
	}
	return sc, nil
}

// jsonParameters renders the schema as the plain map the OpenAI API
// expects for a function definition.
func jsonParameters(ti *schema.ToolInfo) (map[string]any, error) {
	sc, err := parameterSchema(ti)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("%w: tool %s parameters: %v", contract.ErrValidation, ti.Name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: tool %s parameters: %v", contract.ErrValidation, ti.Name, err)
	}
	return m, nil
}

// geminiSchema converts an OpenAPI schema into the Gemini function
// declaration schema. Only the subset the tool catalog uses is mapped.
func geminiSchema(sc *openapi3.Schema) *genai.Schema {
	if sc == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}

	out := &genai.Schema{
		Description: sc.Description,
		Required:    sc.Required,
	}

	switch sc.Type {
	case openapi3.TypeObject:
		out.Type = genai.TypeObject
		if len(sc.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(sc.Properties))
			for name, ref := range sc.Properties {
				out.Properties[name] = geminiSchema(ref.Value)
			}
		}
	case openapi3.TypeArray:
		out.Type = genai.TypeArray
		if sc.Items != nil {
			out.Items = geminiSchema(sc.Items.Value)
		}
	case openapi3.TypeString:
		out.Type = genai.TypeString
		for _, v := range sc.Enum {
			if s, ok := v.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	case openapi3.TypeInteger:
		out.Type = genai.TypeInteger
	case openapi3.TypeNumber:
		out.Type = genai.TypeNumber
	case openapi3.TypeBoolean:
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeObject
	}

	return out
}

func geminiDeclarations(infos []*schema.ToolInfo) ([]*genai.FunctionDeclaration, error) {
	decls := make([]*genai.FunctionDeclaration, 0, len(infos))
	for _, ti := range infos {
		sc, err := parameterSchema(ti)
		if err != nil {
			return nil, err
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        ti.Name,
			Description: ti.Desc,
			Parameters:  geminiSchema(sc),
		})
	}
	return decls, nil
}
