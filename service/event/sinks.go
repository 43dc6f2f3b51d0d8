/*
 * @module service/event/sinks
 * @description 事件外部通道，把任务房间事件镜像转发到Redis、Kafka和MQTT，供其它系统消费
 * @architecture 事件驱动架构 - 集成适配层
 * @documentReference dev_docs/realtime.md
 * @stateFlow 事件发布 -> 序列化 -> 逐通道投递
 * @rules 通道按环境变量启用，未配置的通道不创建；投递失败只记录不重试
 * @dependencies github.com/go-redis/redis/v8, github.com/segmentio/kafka-go, github.com/eclipse/paho.mqtt.golang
 * @refs service/event/event_service.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"ticketdesk-service/service/models"
)

// Sink 事件外部通道
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event *models.SSEEvent) error
	Close() error
}

// NewSinksFromEnv 根据环境变量创建已配置的外部通道
// REDIS_ADDR、KAFKA_BROKERS、MQTT_BROKER 各自独立启用
func NewSinksFromEnv() []Sink {
	var sinks []Sink

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		sinks = append(sinks, NewRedisSink(addr, os.Getenv("REDIS_PASSWORD")))
		log.Printf("Redis事件通道已启用: %s", addr)
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		sinks = append(sinks, NewKafkaSink(strings.Split(brokers, ",")))
		log.Printf("Kafka事件通道已启用: %s", brokers)
	}
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		sink, err := NewMQTTSink(broker)
		if err != nil {
			log.Printf("MQTT事件通道启用失败: %v", err)
		} else {
			sinks = append(sinks, sink)
			log.Printf("MQTT事件通道已启用: %s", broker)
		}
	}

	return sinks
}

func marshalEvent(event *models.SSEEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("事件序列化失败: %w", err)
	}
	return data, nil
}

// === Redis ===

// RedisSink 把事件发布到Redis频道 ticketdesk:events:<taskID>
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink 创建Redis事件通道
func NewRedisSink(addr, password string) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
		}),
	}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, event *models.SSEEvent) error {
	data, err := marshalEvent(event)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("ticketdesk:events:%s", event.TaskID)
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

// === Kafka ===

const kafkaEventTopic = "ticketdesk.events"

// KafkaSink 把事件写入Kafka主题，以任务ID为消息键保证同任务有序
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink 创建Kafka事件通道
func NewKafkaSink(brokers []string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        kafkaEventTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, event *models.SSEEvent) error {
	data, err := marshalEvent(event)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TaskID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// === MQTT ===

// MQTTSink 把事件发布到MQTT主题 ticketdesk/events/<taskID>
type MQTTSink struct {
	client mqtt.Client
}

// NewMQTTSink 创建MQTT事件通道并建立连接
func NewMQTTSink(broker string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("ticketdesk-service-%d", time.Now().UnixNano()))
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT连接失败: %w", token.Error())
	}

	return &MQTTSink{client: client}, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Deliver(ctx context.Context, event *models.SSEEvent) error {
	data, err := marshalEvent(event)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("ticketdesk/events/%s", event.TaskID)
	token := s.client.Publish(topic, 1, false, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("发布消息失败: %w", token.Error())
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
