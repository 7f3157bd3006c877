package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nerrad567/switchbot-mqtt/internal/device"
)

// TelemetrySink receives every device info snapshot. It is optional.
// Satisfied by *influxdb.Client.
type TelemetrySink interface {
	WriteDeviceInfo(address, class string, battery int, position *int)
}

// publishFunc publishes a retained payload.
type publishFunc func(topic string, payload []byte) error

// Reporter fetches device info and publishes it.
type Reporter struct {
	exec    *Executor
	prefix  string
	publish publishFunc
	sink    TelemetrySink
}

// NewReporter creates a reporter. sink may be nil.
func NewReporter(exec *Executor, prefix string, publish publishFunc, sink TelemetrySink) *Reporter {
	return &Reporter{
		exec:    exec,
		prefix:  prefix,
		publish: publish,
		sink:    sink,
	}
}

// Report fetches the battery level and, for curtains when includePosition
// is set, the position. Each metric is fetched under the retry policy and
// published once on success. A failed metric does not prevent the other.
func (r *Reporter) Report(ctx context.Context, h *device.Handle, class DeviceClass, includePosition bool) error {
	withPosition := includePosition && class == ClassCurtain

	var (
		battery, position int
		batteryErr        error
		positionErr       error
	)
	_ = h.Exclusive(func(p device.Protocol) error {
		battery, batteryErr = r.exec.fetch(ctx, p.GetBatteryPercent)
		if withPosition {
			position, positionErr = r.exec.fetch(ctx, p.GetPosition)
		}
		return nil
	})

	var errs []error

	if batteryErr != nil {
		errs = append(errs, fmt.Errorf("battery: %w", batteryErr))
	} else if err := r.publishInt(class, h.Address(), KindBatteryPercentage, battery); err != nil {
		errs = append(errs, err)
	}

	if withPosition {
		if positionErr != nil {
			errs = append(errs, fmt.Errorf("position: %w", positionErr))
		} else if err := r.publishInt(class, h.Address(), KindPosition, position); err != nil {
			errs = append(errs, err)
		}
	}

	if r.sink != nil && batteryErr == nil {
		var pos *int
		if withPosition && positionErr == nil {
			pos = &position
		}
		r.sink.WriteDeviceInfo(h.Address(), class.String(), battery, pos)
	}

	return errors.Join(errs...)
}

func (r *Reporter) publishInt(class DeviceClass, address string, kind TopicKind, value int) error {
	topic := Encode(r.prefix, class, address, kind)
	if err := r.publish(topic, []byte(strconv.Itoa(value))); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}
