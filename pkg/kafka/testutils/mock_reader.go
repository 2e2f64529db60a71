package testutils

import (
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/mock"
)

// MockPartitionReader is a mock implementation of kafka.PartitionReader for testing
type MockPartitionReader struct {
	mock.Mock
}

func (m *MockPartitionReader) Assign(partitions []kafka.TopicPartition) error {
	args := m.Called(partitions)
	return args.Error(0)
}

func (m *MockPartitionReader) ReadMessage(timeout time.Duration) (*kafka.Message, error) {
	args := m.Called(timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kafka.Message), args.Error(1)
}

func (m *MockPartitionReader) QueryWatermarkOffsets(topic string, partition int32, timeoutMs int) (int64, int64, error) {
	args := m.Called(topic, partition, timeoutMs)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}
