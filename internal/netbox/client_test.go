package netbox

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

const testURL = "https://netbox.test"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	hc := &http.Client{}
	gock.InterceptClient(hc)
	c, err := NewClient(Config{URL: testURL + "/", Token: "secret", PageSize: 50, CustomClient: hc})
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{Token: "x"})
	require.Error(t, err)
	_, err = NewClient(Config{URL: testURL})
	require.Error(t, err)
}

func TestClientStatus(t *testing.T) {
	defer gock.Off()
	gock.New(testURL).
		Get("/api/status/").
		MatchHeader("Authorization", "^Token secret$").
		Reply(200).
		JSON(map[string]any{"netbox-version": "4.1.0"})

	c := newTestClient(t)
	status, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "4.1.0", status["netbox-version"])
	require.True(t, gock.IsDone())
}

func TestClientListFollowsPagination(t *testing.T) {
	defer gock.Off()
	next := testURL + "/api/plugins/aci/tenants/?limit=50&offset=50"
	gock.New(testURL).
		Get("/api/plugins/aci/tenants/").
		MatchParam("aci_fabric_id", "1").
		MatchParam("limit", "50").
		Reply(200).
		JSON(map[string]any{"count": 2, "next": next, "results": []map[string]any{{"id": 1, "name": "common"}}})
	gock.New(testURL).
		Get("/api/plugins/aci/tenants/").
		MatchParam("offset", "50").
		Reply(200).
		JSON(map[string]any{"count": 2, "next": nil, "results": []map[string]any{{"id": 2, "name": "prod"}}})

	c := newTestClient(t)
	items, err := c.List(context.Background(), KindTenant, Filter{"aci_fabric_id": "1"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 1, items[0].ID())
	require.Equal(t, "prod", items[1].String("name"))
	require.True(t, gock.IsDone())
}

func TestClientCreateAndPatch(t *testing.T) {
	defer gock.Off()
	gock.New(testURL).
		Post("/api/plugins/aci/vrfs/").
		MatchHeader("X-Request-ID", "run-1").
		JSON(map[string]any{"name": "prod-vrf", "aci_tenant": 3}).
		Reply(201).
		JSON(map[string]any{"id": 10, "name": "prod-vrf", "aci_tenant": map[string]any{"id": 3}})
	gock.New(testURL).
		Patch("/api/plugins/aci/vrfs/10/").
		JSON(map[string]any{"description": "x"}).
		Reply(200).
		JSON(map[string]any{"id": 10, "description": "x"})

	c := newTestClient(t)
	c.SetRequestID("run-1")
	obj, err := c.Create(context.Background(), KindVRF, Params{"name": "prod-vrf", "aci_tenant": 3})
	require.NoError(t, err)
	require.Equal(t, 10, obj.ID())
	require.Equal(t, 3, obj.Ref("aci_tenant"))

	obj, err = c.Patch(context.Background(), KindVRF, 10, Params{"description": "x"})
	require.NoError(t, err)
	require.Equal(t, "x", obj.String("description"))
	require.True(t, gock.IsDone())
}

func TestClientAPIError(t *testing.T) {
	defer gock.Off()
	gock.New(testURL).
		Get("/api/dcim/devices/7/").
		Reply(404).
		BodyString(`{"detail":"Not found."}`)

	c := newTestClient(t)
	_, err := c.Get(context.Background(), KindDevice, 7)
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 404, apiErr.StatusCode)
}
