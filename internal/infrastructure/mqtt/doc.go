// Package mqtt provides MQTT client connectivity for switchbot-mqtt.
//
// This package manages:
//   - Connection to the broker with TLS, authentication and auto-reconnect
//   - Retained availability reporting ("online" on connect, "offline" as
//     Last Will and on graceful shutdown)
//   - Topic subscriptions restored after reconnect
//   - Publishing with QoS and acknowledgement timeouts
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("homeassistant/switch/switchbot/+/set", 1,
//	    func(msg mqtt.Message) error {
//	        if msg.Retained {
//	            return nil
//	        }
//	        return handle(msg.Topic, msg.Payload)
//	    })
package mqtt
