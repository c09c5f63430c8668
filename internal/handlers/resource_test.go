package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
)

func TestMenu_CreateAppliesDefaults(t *testing.T) {
	env := newTestEnv()

	w := do(t, env.router, http.MethodPost, "/menu", `{"area":"East","dishId":"D021","name":"Bucket of Chicken","price":12.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Dish D021 created or updated in area East", decode(t, w)["message"])

	rows, err := env.menu.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, "D021", row["DishID"])
	require.Equal(t, 12.5, row["Price"])
	require.Equal(t, true, row["IsAvailable"])
	require.Equal(t, float64(0), row["PrepTime"])
	require.Equal(t, "", row["Description"])
}

func TestMenu_MaxPrice(t *testing.T) {
	env := newTestEnv()
	do(t, env.router, http.MethodPost, "/menu", `{"area":"East","dishId":"D1","price":9.5}`)
	do(t, env.router, http.MethodPost, "/menu", `{"area":"East","dishId":"D2","price":14}`)
	do(t, env.router, http.MethodPost, "/menu", `{"area":"West","dishId":"D3","price":4}`)

	list := decodeList(t, do(t, env.router, http.MethodGet, "/menu?max_price=10", ""))
	require.Len(t, list, 2)
	require.Equal(t, "D1", list[0]["dishId"])
	require.Equal(t, "D3", list[1]["dishId"])

	list = decodeList(t, do(t, env.router, http.MethodGet, "/menu?max_price=10&area=East", ""))
	require.Len(t, list, 1)
	require.Equal(t, map[string]interface{}{
		"area":         "East",
		"dishId":       "D1",
		"name":         "",
		"description":  "",
		"price":        9.5,
		"restaurantId": "",
		"imageURL":     "",
		"isAvailable":  true,
		"prepTime":     float64(0),
	}, list[0])

	w := do(t, env.router, http.MethodGet, "/menu?max_price=cheap", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "max_price must be a number", decode(t, w)["error"])
}

func TestMenu_Delete(t *testing.T) {
	env := newTestEnv()
	do(t, env.router, http.MethodPost, "/menu", `{"area":"East","dishId":"D021"}`)

	w := do(t, env.router, http.MethodDelete, "/menu", `{"dishId":"D021"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Dish D021 deleted", decode(t, w)["message"])

	w = do(t, env.router, http.MethodDelete, "/menu", `{"dishId":"D021"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Dish not found", decode(t, w)["error"])

	w = do(t, env.router, http.MethodDelete, "/menu", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "dishId is required", decode(t, w)["error"])
}

func TestCustomers_RequiredKeys(t *testing.T) {
	env := newTestEnv()

	for _, body := range []string{`{"area":"North"}`, `{"area":" ","customerId":"C1"}`, `{"area":"North","customerId":7}`} {
		w := do(t, env.router, http.MethodPost, "/customers", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		require.Equal(t, "area and customerId are required", decode(t, w)["error"])
	}

	w := do(t, env.router, http.MethodPost, "/customers", `nope`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid JSON body", decode(t, w)["error"])
}

func TestCustomers_UpdateMergesAndMoves(t *testing.T) {
	env := newTestEnv()
	do(t, env.router, http.MethodPost, "/customers", `{"area":"North","customerId":"C1","name":"Ali","phone":"+34 600"}`)

	w := do(t, env.router, http.MethodPut, "/customers", `{"customerId":"C1","lastName":"Samara"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Customer C1 updated", decode(t, w)["message"])

	w = do(t, env.router, http.MethodPut, "/customers", `{"customerId":"C1","area":"South","phone":"+34 700"}`)
	require.Equal(t, http.StatusOK, w.Code)

	rows, err := env.cust.Query(context.Background(), tablestore.Eq(tablestore.RowKey, "C1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "South", rows[0].PartitionKey())
	require.Equal(t, "Ali", rows[0]["Name"])
	require.Equal(t, "Samara", rows[0]["LastName"])
	require.Equal(t, "+34 700", rows[0]["Phone"])

	w = do(t, env.router, http.MethodPut, "/customers", `{"customerId":"C9"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Customer not found", decode(t, w)["error"])
}

func TestRestaurants_Search(t *testing.T) {
	env := newTestEnv()
	do(t, env.router, http.MethodPost, "/restaurants", `{"area":"East","restaurantId":"R011","name":"Chicken Shack"}`)
	do(t, env.router, http.MethodPost, "/restaurants", `{"area":"West","restaurantId":"R012"}`)

	list := decodeList(t, do(t, env.router, http.MethodGet, "/restaurants?restaurantId=R011", ""))
	require.Len(t, list, 1)
	require.Equal(t, "Chicken Shack", list[0]["name"])
	require.Equal(t, "East", list[0]["area"])

	list = decodeList(t, do(t, env.router, http.MethodGet, "/restaurants", ""))
	require.Len(t, list, 2)
}
