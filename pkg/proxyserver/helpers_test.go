package proxyserver_test

import (
	"encoding/json"
	"net/http"
)

func decodeBody(resp *http.Response, dest any) error {
	return json.NewDecoder(resp.Body).Decode(dest)
}
