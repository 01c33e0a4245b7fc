package openapi_test

import (
	"context"
	"os"
	"testing"

	"github.com/aretw0/arbor/internal/loader"
	"github.com/aretw0/arbor/internal/presentation/openapi"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestModule(t *testing.T) {
	ms := domain.UnitMilliseconds
	m := domain.Module{
		Info: domain.ModuleInfo{Name: "pipette", Kind: "liquid", Description: "Single channel"},
		API: domain.API{
			Endpoint:  "rig/pipette/{channel}",
			Variables: map[string]string{"channel": "1"},
			Services: map[string]domain.Service{
				"plunger": {
					domain.RequestPut: {
						Summary: "Move the plunger",
						Timeout: "5s",
						Parameters: []domain.ValueSchema{
							{Name: "volume", Type: "f64"},
							{Name: "dwell", Type: "u32", Unit: &ms},
						},
					},
				},
				"tip": {
					domain.RequestGet: {
						Timeout:  "1",
						Response: []domain.ValueSchema{{Name: "attached", Type: "bool"}},
					},
					domain.RequestDelete: {Timeout: "3s"},
				},
			},
		},
	}

	doc, err := openapi.Module("pipette", m, "1.0.0")
	require.NoError(t, err)

	assert.Equal(t, openapi.Version, doc.OpenAPI)
	assert.Equal(t, "pipette", doc.Info.Title)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	require.Len(t, doc.Servers, 1)
	assert.Equal(t, "1", doc.Servers[0].Variables["channel"].Default)

	plunger := doc.Paths.Value("/plunger")
	require.NotNil(t, plunger)
	require.NotNil(t, plunger.Put)
	assert.Equal(t, "pipette_plunger_put", plunger.Put.OperationID)
	assert.Equal(t, "5s", plunger.Put.Extensions["x-timeout"])

	body := plunger.Put.RequestBody.Value.Content.Get("application/json").Schema.Value
	assert.ElementsMatch(t, []string{"volume", "dwell"}, body.Required)
	dwell := body.Properties["dwell"].Value
	assert.True(t, dwell.Type.Is("integer"))
	assert.Equal(t, "ms", dwell.Extensions["x-unit"])

	tip := doc.Paths.Value("/tip")
	require.NotNil(t, tip)
	assert.NotNil(t, tip.Get)
	assert.NotNil(t, tip.Delete)
	assert.Nil(t, tip.Post)

	ok := tip.Get.Responses.Status(200).Value
	attached := ok.Content.Get("application/json").Schema.Value.Properties["attached"].Value
	assert.True(t, attached.Type.Is("boolean"))
}

func TestModule_QueryParameters(t *testing.T) {
	m := domain.Module{
		Info: domain.ModuleInfo{Name: "deck"},
		API: domain.API{Services: map[string]domain.Service{
			"temperature": {domain.RequestGet: {
				Timeout:    "1s",
				Parameters: []domain.ValueSchema{{Name: "sensor", Type: "string"}},
			}},
		}},
	}

	doc, err := openapi.Module("deck", m, "")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", doc.Info.Version)
	assert.Empty(t, doc.Servers)

	get := doc.Paths.Value("/temperature").Get
	require.Len(t, get.Parameters, 1)
	assert.Equal(t, "query", get.Parameters[0].Value.In)
	assert.Equal(t, "sensor", get.Parameters[0].Value.Name)
}

func TestLibrary_Example(t *testing.T) {
	b, err := loader.Load(context.Background(), os.DirFS("../../../examples/library"))
	require.NoError(t, err)
	lib, err := validator.Validate(b)
	require.NoError(t, err)

	docs, err := openapi.Library(lib)
	require.NoError(t, err)
	assert.Len(t, docs, len(lib.ModuleNames()))

	out, err := yaml.Marshal(docs["gantry"])
	require.NoError(t, err)
	assert.Contains(t, string(out), "gantry_position_get")
}
