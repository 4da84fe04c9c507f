package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/yolink-integration/internal/pkg/model"
)

var errPublishTimeout = errors.New("mqtt publish timed out")

// Publish forwards every device of a snapshot to Home Assistant. Failure notifications carry
// no device data and are ignored.
func (s *service) Publish(ctx context.Context, n model.Notification) error {
	if n.Kind != model.SensorData {
		s.logger.Debug("skipping mqtt publish of failure", zap.String("kind", n.Kind.String()))
		return nil
	}

	ids := lo.Keys(n.Snapshot)
	slices.Sort(ids)

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		device := n.Snapshot[id]
		if err := s.RegisterDevice(device); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", id, err))
			continue
		}
		if err := s.PublishData(device); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *service) RegisterDevice(device model.Device) error {
	id := entityID(device)
	if s.registered.Has(id) {
		return nil
	}

	payload, err := json.Marshal(defaultRegisterMsg(device))
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s/config", discoveryPrefix, id)
	if err := s.wait(s.client.Publish(topic, 1, true, payload)); err != nil {
		return err
	}
	s.registered.Set(id, struct{}{})
	s.logger.Info("registered device with home assistant", zap.String("entity_id", id), zap.String("name", device.Name))
	return nil
}

// PublishData sends the device state unless it is identical to the last one sent.
func (s *service) PublishData(device model.Device) error {
	id := entityID(device)
	data := device.Data
	if data == nil {
		data = model.DeviceState{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if last, ok := s.published.Get(id); ok && last == string(payload) {
		return nil
	}

	topic := fmt.Sprintf("%s/%s/state", discoveryPrefix, id)
	if err := s.wait(s.client.Publish(topic, 0, false, payload)); err != nil {
		return err
	}
	s.published.Set(id, string(payload))
	return nil
}

func (s *service) wait(token paho_mqtt.Token) error {
	if !token.WaitTimeout(s.timeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func entityID(device model.Device) string {
	return slug.Make(fmt.Sprintf("yolink %s %s", device.Type, device.DeviceID))
}

func defaultRegisterMsg(device model.Device) model.RegisterMessage {
	id := entityID(device)
	msg := model.RegisterMessage{
		Tilda:         fmt.Sprintf("%s/%s", discoveryPrefix, id),
		Name:          device.Name,
		ID:            id,
		StateTopic:    "~/state",
		JsonAttrTopic: "~/state",
		ValueTemplate: "{{ value_json.state.state }}",
		Device: model.RegisterDevice{
			Name:         device.Name,
			Identifiers:  []string{device.DeviceID},
			Model:        lo.CoalesceOrEmpty(device.ModelName, device.Type.String()),
			Manufacturer: manufacturer,
		},
	}
	if device.Type == model.DeviceTypeTHSensor {
		msg.ValueTemplate = "{{ value_json.state.temperature }}"
		msg.UnitOfMeasurement = "°C"
	}
	return msg
}
