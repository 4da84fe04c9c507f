package yolink

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
)

// FetchState queries the live state of one device. The account token authorises the call and
// the device token selects the device.
func (c *Client) FetchState(ctx context.Context, device model.Device, token AccessToken) (model.DeviceState, error) {
	_, data, err := c.post(ctx, token.Token, stateRequest{
		Method:       device.Type.StateMethod(),
		TargetDevice: device.DeviceID,
		Token:        device.Token,
		Time:         c.now().UnixMilli(),
	})
	if err != nil {
		return nil, &PartialError{DeviceID: device.DeviceID, Err: err}
	}

	stateRes := apiResponse{}
	if err := json.Unmarshal(data, &stateRes); err != nil {
		return nil, &PartialError{DeviceID: device.DeviceID, Err: err}
	}
	if stateRes.Code != CodeSuccess {
		return nil, &PartialError{DeviceID: device.DeviceID, Code: stateRes.Code, Desc: stateRes.Desc}
	}

	var state model.DeviceState
	if err := json.Unmarshal(stateRes.Data, &state); err != nil || state == nil {
		return nil, &PartialError{
			DeviceID: device.DeviceID,
			Code:     stateRes.Code,
			Err:      errors.Join(errors.New("state payload is not an object"), err),
		}
	}
	return state, nil
}
