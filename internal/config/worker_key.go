package config

type WorkerKeyStruct struct {
	// InboundMessagesQueue receives chat messages pushed by the gateway.
	InboundMessagesQueue string
	// InboundDeadLetterQueue keeps messages that failed every attempt.
	InboundDeadLetterQueue string
}

var WorkerKey = &WorkerKeyStruct{
	InboundMessagesQueue:   "exam_inbound_queue",
	InboundDeadLetterQueue: "exam_inbound_dead_letter",
}
