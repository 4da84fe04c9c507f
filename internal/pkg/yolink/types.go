package yolink

import (
	"encoding/json"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
)

const (
	tokenPath = "/open/yolink/token"
	apiPath   = "/open/yolink/v2/api"

	CodeSuccess      = "000000"
	CodeTokenInvalid = "000103"

	MethodGetDeviceList = "Home.getDeviceList"
)

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   float64 `json:"expires_in"`
	Code        any     `json:"code"`
	Desc        string  `json:"desc"`
}

type deviceListRequest struct {
	Method string `json:"method"`
	Time   int64  `json:"time"`
}

type stateRequest struct {
	Method       string `json:"method"`
	TargetDevice string `json:"targetDevice"`
	Token        string `json:"token"`
	Time         int64  `json:"time"`
}

type apiResponse struct {
	Code   string          `json:"code"`
	Desc   string          `json:"desc"`
	Method string          `json:"method"`
	Time   int64           `json:"time"`
	Data   json.RawMessage `json:"data"`
}

type deviceListData struct {
	Devices *[]model.Device `json:"devices"`
}
