package config

type WorkerKeyStruct struct {
	PersistTempAnswersQueue string
	GradeFRQQueue           string
}

var WorkerKey = &WorkerKeyStruct{
	PersistTempAnswersQueue: "persist_temp_answers_queue",
	GradeFRQQueue:           "grade_frq_queue",
}
