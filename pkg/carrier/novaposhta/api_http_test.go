package novaposhta_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
)

func TestHTTPAPIClient_Call_SendsEnvelope(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[{"Ref":"street-1","Description":"Хрещатик"}],"errors":[],"warnings":[]}`))
	}))
	defer srv.Close()

	client := novaposhta.NewHTTPAPIClient(novaposhta.HTTPAPIClientConfig{BaseURL: srv.URL, APIKey: "secret"})

	resp, err := client.Call(context.Background(), novaposhta.ModelAddress, novaposhta.MethodGetStreet,
		novaposhta.StreetRequest{CityRef: "city-1", FindByString: "Хрещатик"})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 1)

	assert.Equal(t, "secret", got["apiKey"])
	assert.Equal(t, "AddressGeneral", got["modelName"])
	assert.Equal(t, "getStreet", got["calledMethod"])
	props, ok := got["methodProperties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "city-1", props["CityRef"])
}

func TestHTTPAPIClient_Call_RejectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"data":[],"errors":["Document not found"],"warnings":{}}`))
	}))
	defer srv.Close()

	client := novaposhta.NewHTTPAPIClient(novaposhta.HTTPAPIClientConfig{BaseURL: srv.URL})

	resp, err := client.Call(context.Background(), novaposhta.ModelInternetDocument, novaposhta.MethodDelete,
		novaposhta.DeleteDocumentsRequest{DocumentRefs: []string{"doc-1"}})

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, novaposhta.Messages{"Document not found"}, resp.Errors)
}

func TestHTTPAPIClient_Call_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	client := novaposhta.NewHTTPAPIClient(novaposhta.HTTPAPIClientConfig{BaseURL: srv.URL})

	_, err := client.Call(context.Background(), novaposhta.ModelAddress, novaposhta.MethodGetWarehouses, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPAPIClient_Call_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	client := novaposhta.NewHTTPAPIClient(novaposhta.HTTPAPIClientConfig{BaseURL: srv.URL})

	_, err := client.Call(context.Background(), novaposhta.ModelAddress, novaposhta.MethodGetWarehouses, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
