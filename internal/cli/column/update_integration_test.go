package column

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/testutil"
	testcli "github.com/apporte/workflow/internal/testutil/cli"
)

func TestUpdateColumn_Integration(t *testing.T) {
	repo, c := testcli.SetupCLITest(t)

	pipeline := testutil.MakePipeline(t, repo, "Delivery", nil, []string{"manager"})
	col := testutil.MakeColumn(t, repo, pipeline.ID, 0, models.Column{Key: "review"})

	t.Run("Manager renames the column", func(t *testing.T) {
		cmd := UpdateCmd()

		output, err := testcli.ExecuteCLICommand(t, c, cmd, []string{
			"--pipeline", fmt.Sprintf("%d", pipeline.ID),
			"--id", fmt.Sprintf("%d", col.ID),
			"--name", "In Review",
			"--actor-id", "dana",
			"--roles", "manager",
		})

		assert.NoError(t, err)
		assert.Contains(t, output, fmt.Sprintf("Column %d updated successfully", col.ID))

		updated, err := repo.GetColumnByID(context.Background(), col.ID)
		assert.NoError(t, err)
		assert.Equal(t, "In Review", updated.Name)
	})

	t.Run("Transition rules document is stored", func(t *testing.T) {
		cmd := UpdateCmd()

		rules := `{"transitions":[{"from":"review","to":"done","allowedRoles":["manager"]}]}`

		_, err := testcli.ExecuteCLICommand(t, c, cmd, []string{
			"--pipeline", fmt.Sprintf("%d", pipeline.ID),
			"--id", fmt.Sprintf("%d", col.ID),
			"--transition-rules", rules,
			"--actor-id", "dana",
			"--roles", "manager",
			"--quiet",
		})

		assert.NoError(t, err)

		updated, err := repo.GetColumnByID(context.Background(), col.ID)
		assert.NoError(t, err)
		assert.JSONEq(t, rules, string(updated.TransitionRules))
	})

	t.Run("Entity type restriction applies", func(t *testing.T) {
		cmd := UpdateCmd()

		output, err := testcli.ExecuteCLICommand(t, c, cmd, []string{
			"--pipeline", fmt.Sprintf("%d", pipeline.ID),
			"--id", fmt.Sprintf("%d", col.ID),
			"--entity-types", "bug,incident",
			"--actor-id", "dana",
			"--roles", "manager",
			"--json",
		})

		assert.NoError(t, err)

		result := testcli.ParseJSON(t, output)
		assert.Equal(t, true, result["success"])

		updated, err := repo.GetColumnByID(context.Background(), col.ID)
		assert.NoError(t, err)
		assert.Equal(t, []string{"bug", "incident"}, updated.AllowedEntityTypes)
	})
}
