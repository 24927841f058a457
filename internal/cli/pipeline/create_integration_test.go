package pipeline

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	testcli "github.com/apporte/workflow/internal/testutil/cli"
	"github.com/apporte/workflow/internal/types"
)

func TestCreatePipeline_Integration(t *testing.T) {
	repo, c := testcli.SetupCLITest(t)

	t.Run("Creates pipeline with roles", func(t *testing.T) {
		cmd := CreateCmd()

		output, err := testcli.ExecuteCLICommand(t, c, cmd, []string{
			"--name", "Hiring",
			"--context-type", "department",
			"--context-id", "42",
			"--view-roles", "recruiter,manager",
			"--manage-roles", "manager",
		})

		assert.NoError(t, err)
		assert.Contains(t, output, "Pipeline 'Hiring' created successfully")

		pipelines, err := repo.GetAllPipelines(context.Background())
		assert.NoError(t, err)
		assert.Len(t, pipelines, 1)
		assert.Equal(t, "Hiring", pipelines[0].Name)
		assert.Equal(t, []string{"recruiter", "manager"}, pipelines[0].AllowedRolesView)
		assert.Equal(t, []string{"manager"}, pipelines[0].AllowedRolesManage)
	})

	t.Run("Quiet mode prints only the ID", func(t *testing.T) {
		cmd := CreateCmd()

		output, err := testcli.ExecuteCLICommand(t, c, cmd, []string{
			"--name", "Support",
			"--quiet",
		})

		assert.NoError(t, err)

		id, err := strconv.ParseInt(strings.TrimSpace(output), 10, 64)
		assert.NoError(t, err)

		pipeline, err := repo.GetPipelineByID(context.Background(), types.PipelineID(id))
		assert.NoError(t, err)
		assert.Equal(t, "Support", pipeline.Name)
	})

	t.Run("JSON output carries the pipeline", func(t *testing.T) {
		cmd := CreateCmd()

		output, err := testcli.ExecuteCLICommand(t, c, cmd, []string{
			"--name", "Ops",
			"--context-type", "project",
			"--context-id", "p-9",
			"--json",
		})

		assert.NoError(t, err)

		result := testcli.ParseJSON(t, output)
		assert.Equal(t, true, result["success"])

		pipeline, ok := result["pipeline"].(map[string]interface{})
		assert.True(t, ok, "pipeline payload missing: %s", output)
		assert.Equal(t, "Ops", pipeline["name"])
		assert.Equal(t, "project", pipeline["context_type"])
	})
}
