// ABOUTME: Tests for the Green API client against httptest servers
// ABOUTME: Verifies endpoint shape, payloads and error classification

package greenapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wassist/handoff-gateway/internal/config"
)

func testClient(serverURL string) *Client {
	return NewClient(config.GreenAPIConfig{
		APIURL:     serverURL,
		IDInstance: "7103",
		APIToken:   "secret-token",
	})
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/waInstance7103/sendMessage/secret-token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "972526672663@c.us", payload["chatId"])
		assert.Equal(t, "shalom", payload["message"])

		fmt.Fprint(w, `{"idMessage": "BAE5F4886F6F2407"}`)
	}))
	defer server.Close()

	result, err := testClient(server.URL).SendMessage(context.Background(), "972526672663@c.us", "shalom")
	require.NoError(t, err)
	assert.Equal(t, "BAE5F4886F6F2407", result.IDMessage)
}

func TestSendMessageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance not authorized", 466)
	}))
	defer server.Close()

	_, err := testClient(server.URL).SendMessage(context.Background(), "c", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "466")
}

func TestSendFileByUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/waInstance7103/sendFileByUpload/secret-token", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "972526672663@c.us", r.FormValue("chatId"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "reply.mp3", header.Filename)

		fmt.Fprint(w, `{"idMessage": "BAE5A000"}`)
	}))
	defer server.Close()

	result, err := testClient(server.URL).SendFileByUpload(context.Background(), "972526672663@c.us", "reply.mp3", []byte("mp3-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "BAE5A000", result.IDMessage)
}

func TestSendTyping(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/waInstance7103/sendPresence/secret-token", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer server.Close()

	require.NoError(t, testClient(server.URL).SendTyping(context.Background(), "972526672663@c.us"))
	assert.Equal(t, "composing", payload["presenceType"])
}

func TestGetStateInstance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/waInstance7103/getStateInstance/secret-token", r.URL.Path)
		fmt.Fprint(w, `{"stateInstance": "authorized"}`)
	}))
	defer server.Close()

	state, err := testClient(server.URL).GetStateInstance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "authorized", state.StateInstance)
}

func TestGetSettings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"wid": "972500000001@c.us", "outgoingWebhook": "yes"}`)
	}))
	defer server.Close()

	settings, err := testClient(server.URL).GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "972500000001@c.us", settings.WID)
	assert.Equal(t, "yes", settings.OutgoingWebhook)
}

func TestDownloadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("ogg-bytes"))
	}))
	defer server.Close()

	data, mimeType, err := testClient(server.URL).DownloadFile(context.Background(), server.URL+"/media/file.ogg")
	require.NoError(t, err)
	assert.Equal(t, []byte("ogg-bytes"), data)
	assert.Equal(t, "audio/ogg", mimeType)
}

func TestDownloadFileNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, _, err := testClient(server.URL).DownloadFile(context.Background(), server.URL+"/gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
