package yolink

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
)

// ListDevices returns the full device inventory of the account.
func (c *Client) ListDevices(ctx context.Context, token AccessToken) ([]model.Device, error) {
	res, data, err := c.post(ctx, token.Token, deviceListRequest{
		Method: MethodGetDeviceList,
		Time:   c.now().UnixMilli(),
	})
	if err != nil {
		return nil, &APIError{Err: err}
	}

	listRes := apiResponse{}
	jsonErr := json.Unmarshal(data, &listRes)
	if res.StatusCode == http.StatusUnauthorized {
		listRes.Code = CodeTokenInvalid
	}
	if jsonErr != nil {
		return nil, &APIError{Code: listRes.Code, Raw: string(data)}
	}

	listErr := &APIError{
		Code: listRes.Code,
		Desc: listRes.Desc,
		Raw:  string(data),
	}
	if listRes.Code != CodeSuccess || len(listRes.Data) == 0 {
		return nil, listErr
	}
	devices := deviceListData{}
	if err := json.Unmarshal(listRes.Data, &devices); err != nil || devices.Devices == nil {
		return nil, listErr
	}

	c.logger.Info("fetched devices from api", zap.Int("count", len(*devices.Devices)))
	return *devices.Devices, nil
}
