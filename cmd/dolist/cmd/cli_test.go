package cmd_test

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dolist/cmd/dolist/cmd"
	"dolist/internal/testutil"
)

type itemsOutput struct {
	List struct {
		Label  string `json:"label"`
		Active int    `json:"active"`
		Total  int    `json:"total"`
	} `json:"list"`
	Items []struct {
		ID     int64  `json:"id"`
		Label  string `json:"label"`
		Active bool   `json:"active"`
		Star   bool   `json:"star"`
	} `json:"items"`
	Result string `json:"result"`
}

func itemsJSON(t *testing.T, c *testutil.CLITest, list string) itemsOutput {
	t.Helper()
	var out itemsOutput
	require.NoError(t, json.Unmarshal([]byte(c.MustExecute("--json", "items", list)), &out))
	return out
}

func seedGroceries(t *testing.T, c *testutil.CLITest) {
	t.Helper()
	c.MustExecute("list", "create", "Groceries")
	c.MustExecute("add", "Groceries", "bread")
	c.MustExecute("add", "Groceries", "butter")
}

// TestListLifecycle verifies creating, renaming and deleting lists
func TestListLifecycle(t *testing.T) {
	c := testutil.NewCLITest(t)

	out := c.MustExecute("list")
	testutil.AssertContains(t, out, "No lists found")
	testutil.AssertResultCode(t, out, cmd.ResultInfoOnly)

	out = c.MustExecute("list", "create", "Groceries")
	testutil.AssertContains(t, out, "Created list: Groceries")
	testutil.AssertResultCode(t, out, cmd.ResultActionCompleted)

	_, stderr := c.ExecuteAndFail("list", "create", "groceries")
	testutil.AssertContains(t, stderr, "already exists")

	out = c.MustExecute("list", "rename", "Groceries", "Food", "shop")
	testutil.AssertContains(t, out, "Renamed list: Groceries -> Food shop")

	out = c.MustExecute("lists")
	testutil.AssertContains(t, out, "Food shop")
	testutil.AssertNotContains(t, out, "Groceries")

	out = c.MustExecute("list", "delete", "Food shop")
	testutil.AssertContains(t, out, "Deleted list: Food shop")
	testutil.AssertContains(t, c.MustExecute("list"), "No lists found")
}

// TestListDeleteConfirmation verifies the prompt guards list deletion
func TestListDeleteConfirmation(t *testing.T) {
	c := testutil.NewCLITest(t)
	seedGroceries(t, c)
	c.Config().NoPrompt = false

	c.SetStdin("n\n")
	out := c.MustExecute("list", "delete", "Groceries")
	testutil.AssertContains(t, out, "Delete list 'Groceries' and its 2 items? (y/n)")
	testutil.AssertContains(t, out, "Cancelled")
	testutil.AssertContains(t, c.MustExecute("list"), "Groceries")

	c.SetStdin("y\n")
	out = c.MustExecute("list", "delete", "Groceries")
	testutil.AssertContains(t, out, "Deleted list: Groceries")
}

// TestItemLifecycle runs every item command against one list
func TestItemLifecycle(t *testing.T) {
	c := testutil.NewCLITest(t)
	seedGroceries(t, c)

	out := c.MustExecute("items", "Groceries")
	testutil.AssertContains(t, out, "Groceries (2 active / 2 total)")
	testutil.AssertContains(t, out, "bread")
	testutil.AssertResultCode(t, out, cmd.ResultInfoOnly)

	out = c.MustExecute("done", "Groceries", "bread")
	testutil.AssertContains(t, out, "Completed item: bread")
	testutil.AssertResultCode(t, out, cmd.ResultActionCompleted)

	out = c.MustExecute("items", "Groceries", "--view", "active")
	testutil.AssertContains(t, out, "Groceries (1 active / 2 total)")
	testutil.AssertContains(t, out, "butter")
	testutil.AssertNotContains(t, out, "bread")

	out = c.MustExecute("star", "Groceries", "butter")
	testutil.AssertContains(t, out, "Starred item: butter")
	testutil.AssertContains(t, c.MustExecute("items", "Groceries", "-v", "starred"), "butter *")

	out = c.MustExecute("rename", "Groceries", "butter", "salted", "butter")
	testutil.AssertContains(t, out, "Renamed item: butter -> salted butter")

	out = c.MustExecute("clean", "Groceries")
	testutil.AssertContains(t, out, "Removed 1 done items from Groceries")

	got := itemsJSON(t, c, "Groceries")
	require.Len(t, got.Items, 1)
	assert.Equal(t, "salted butter", got.Items[0].Label)
	assert.True(t, got.Items[0].Star)
	assert.Equal(t, 1, got.List.Total)

	out = c.MustExecute("rm", "Groceries", "salted")
	testutil.AssertContains(t, out, "Deleted item: salted butter")
	testutil.AssertContains(t, c.MustExecute("items", "Groceries"), "No items")
}

// TestUndoByID verifies numeric refs reach items regardless of state
func TestUndoByID(t *testing.T) {
	c := testutil.NewCLITest(t)
	seedGroceries(t, c)
	c.MustExecute("done", "Groceries", "bread")

	var id int64
	for _, it := range itemsJSON(t, c, "Groceries").Items {
		if it.Label == "bread" {
			id = it.ID
		}
	}
	require.NotZero(t, id)

	out := c.MustExecute("undo", "Groceries", strconv.FormatInt(id, 10))
	testutil.AssertContains(t, out, "Reopened item: bread")
	for _, it := range itemsJSON(t, c, "Groceries").Items {
		assert.True(t, it.Active, "%s should be active", it.Label)
	}
}

// TestDoneSkipsFinishedItems verifies text refs only match items the action applies to
func TestDoneSkipsFinishedItems(t *testing.T) {
	c := testutil.NewCLITest(t)
	seedGroceries(t, c)
	c.MustExecute("done", "Groceries", "bread")

	_, stderr := c.ExecuteAndFail("done", "Groceries", "bread")
	testutil.AssertContains(t, stderr, "item not found: bread")
}

// TestAmbiguousItemNoPrompt verifies several matches fail without a prompt
func TestAmbiguousItemNoPrompt(t *testing.T) {
	c := testutil.NewCLITest(t)
	seedGroceries(t, c)

	stdout, stderr := c.ExecuteAndFail("done", "Groceries", "b")
	testutil.AssertContains(t, stderr, "matches more than one item")
	testutil.AssertResultCode(t, stdout, cmd.ResultError)

	out := c.MustExecute("done", "Groceries", "BREAD")
	testutil.AssertContains(t, out, "Completed item: bread")
}

// TestAmbiguousItemPrompt verifies the numbered menu picks one match
func TestAmbiguousItemPrompt(t *testing.T) {
	c := testutil.NewCLITest(t)
	seedGroceries(t, c)
	c.Config().NoPrompt = false

	c.SetStdin("1\n")
	out := c.MustExecute("star", "Groceries", "b")
	testutil.AssertContains(t, out, "Several items match \"b\":")
	testutil.AssertContains(t, out, "Select (0 to cancel):")
	testutil.AssertContains(t, out, "Starred item:")

	c.SetStdin("0\n")
	_, stderr := c.ExecuteAndFail("star", "Groceries", "b")
	testutil.AssertContains(t, stderr, "cancelled")
}

// TestAddPromptsForLabel verifies add reads the label when none is given
func TestAddPromptsForLabel(t *testing.T) {
	c := testutil.NewCLITest(t)
	c.MustExecute("list", "create", "Groceries")

	_, stderr := c.ExecuteAndFail("add", "Groceries")
	testutil.AssertContains(t, stderr, "label is required")

	c.Config().NoPrompt = false
	c.SetStdin("\nmilk\n")
	out := c.MustExecute("add", "Groceries")
	testutil.AssertContains(t, out, "Label cannot be empty.")
	testutil.AssertContains(t, out, "Added item: milk")
}

// TestMissingList verifies unknown list refs explain how to create one
func TestMissingList(t *testing.T) {
	c := testutil.NewCLITest(t)
	c.MustExecute("list", "create", "Groceries")

	_, stderr := c.ExecuteAndFail("items", "Chores")
	testutil.AssertContains(t, stderr, "list not found: Chores")
	testutil.AssertContains(t, stderr, "dolist list create Chores")
}

// TestInvalidLabel verifies empty labels are rejected before touching the store
func TestInvalidLabel(t *testing.T) {
	c := testutil.NewCLITest(t)
	seedGroceries(t, c)

	_, stderr := c.ExecuteAndFail("add", "Groceries", "   ")
	testutil.AssertContains(t, stderr, "invalid label")
	assert.Len(t, itemsJSON(t, c, "Groceries").Items, 2)
}

// TestJSONActionOutput verifies actions report the changed items
func TestJSONActionOutput(t *testing.T) {
	c := testutil.NewCLITest(t)
	seedGroceries(t, c)

	var resp struct {
		Action string `json:"action"`
		List   struct {
			Active int `json:"active"`
		} `json:"list"`
		Items []struct {
			Label  string `json:"label"`
			Active bool   `json:"active"`
		} `json:"items"`
		Result string `json:"result"`
	}
	out := c.MustExecute("--json", "done", "Groceries", "bread", "butter")
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "done", resp.Action)
	assert.Equal(t, cmd.ResultActionCompleted, resp.Result)
	assert.Equal(t, 0, resp.List.Active)
	require.Len(t, resp.Items, 2)
	for _, it := range resp.Items {
		assert.False(t, it.Active, "%s should be done", it.Label)
	}
}

// TestBackends runs the same session against every store
func TestBackends(t *testing.T) {
	for _, name := range []string{"sqlite", "file", "badger"} {
		t.Run(name, func(t *testing.T) {
			c := testutil.NewCLITestWithBackend(t, name)
			seedGroceries(t, c)
			c.MustExecute("done", "Groceries", "bread")
			c.MustExecute("star", "Groceries", "butter")

			got := itemsJSON(t, c, "Groceries")
			assert.Equal(t, "Groceries", got.List.Label)
			assert.Equal(t, 1, got.List.Active)
			assert.Equal(t, 2, got.List.Total)

			state := make(map[string][2]bool)
			for _, it := range got.Items {
				state[it.Label] = [2]bool{it.Active, it.Star}
			}
			assert.Equal(t, map[string][2]bool{
				"bread":  {false, false},
				"butter": {true, true},
			}, state)
		})
	}
}

// TestBackendFlagOverridesConfig verifies --backend and --db-path select the store
func TestBackendFlagOverridesConfig(t *testing.T) {
	c := testutil.NewCLITest(t)
	path := c.TmpDir() + "/other.md"

	c.MustExecute("-b", "file", "--db-path", path, "list", "create", "Elsewhere")

	testutil.AssertContains(t, c.MustExecute("-b", "file", "--db-path", path, "list"), "Elsewhere")
	testutil.AssertContains(t, c.MustExecute("list"), "No lists found")
}
