//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCRUD(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "tasks-crud@example.com", "password123")
	token := LoginUser(t, env, "tasks-crud@example.com", "password123")

	var taskID string

	t.Run("create task", func(t *testing.T) {
		body := map[string]any{"title": "Buy groceries", "description": "milk and eggs"}
		resp := DoRequest(t, env, "POST", "/api/v1/tasks", body, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		taskID = data["id"].(string)
		assert.Equal(t, "Buy groceries", data["title"])
		assert.Equal(t, false, data["is_completed"])
	})

	t.Run("empty title rejected", func(t *testing.T) {
		body := map[string]any{"title": "   "}
		resp := DoRequest(t, env, "POST", "/api/v1/tasks", body, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("get task", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks/"+taskID, nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, "Buy groceries", data["title"])
	})

	t.Run("update task", func(t *testing.T) {
		body := map[string]any{"title": "Buy more groceries"}
		resp := DoRequest(t, env, "PUT", "/api/v1/tasks/"+taskID, body, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, "Buy more groceries", data["title"])
		assert.Equal(t, "milk and eggs", data["description"], "unset fields keep their value")
	})

	t.Run("complete toggles", func(t *testing.T) {
		resp := DoRequest(t, env, "PATCH", "/api/v1/tasks/"+taskID+"/complete", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := ParseResponse(t, resp)
		assert.Equal(t, true, result["data"].(map[string]any)["is_completed"])

		resp = DoRequest(t, env, "PATCH", "/api/v1/tasks/"+taskID+"/complete", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result = ParseResponse(t, resp)
		assert.Equal(t, false, result["data"].(map[string]any)["is_completed"])
	})

	t.Run("list filters by status", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks?status=completed", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := ParseResponse(t, resp)
		assert.Empty(t, result["data"], "the only task was toggled back to pending")
	})

	t.Run("delete task", func(t *testing.T) {
		resp := DoRequest(t, env, "DELETE", "/api/v1/tasks/"+taskID, nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = DoRequest(t, env, "GET", "/api/v1/tasks/"+taskID, nil, token)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTaskOwnershipIsolation(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "owner-a@example.com", "password123")
	RegisterUser(t, env, "owner-b@example.com", "password123")

	tokenA := LoginUser(t, env, "owner-a@example.com", "password123")
	tokenB := LoginUser(t, env, "owner-b@example.com", "password123")

	body := map[string]any{"title": "User A task"}
	resp := DoRequest(t, env, "POST", "/api/v1/tasks", body, tokenA)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	result := ParseResponse(t, resp)
	taskAID := result["data"].(map[string]any)["id"].(string)

	t.Run("owner can access own task", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks/"+taskAID, nil, tokenA)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("other user cannot GET task", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/tasks/"+taskAID, nil, tokenB)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("other user cannot UPDATE task", func(t *testing.T) {
		updateBody := map[string]any{"title": "Hijacked"}
		resp := DoRequest(t, env, "PUT", "/api/v1/tasks/"+taskAID, updateBody, tokenB)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("other user cannot DELETE task", func(t *testing.T) {
		resp := DoRequest(t, env, "DELETE", "/api/v1/tasks/"+taskAID, nil, tokenB)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("listing only returns own tasks", func(t *testing.T) {
		DoRequest(t, env, "POST", "/api/v1/tasks", map[string]any{"title": "User B task"}, tokenB)

		listResp := DoRequest(t, env, "GET", "/api/v1/tasks", nil, tokenA)
		require.Equal(t, http.StatusOK, listResp.StatusCode)

		listResult := ParseResponse(t, listResp)
		for _, item := range listResult["data"].([]any) {
			task := item.(map[string]any)
			assert.NotEqual(t, "User B task", task["title"])
		}
	})
}
