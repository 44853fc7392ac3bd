package config

type WorkerKeyStruct struct {
	SweepLease string
}

var WorkerKey = &WorkerKeyStruct{
	SweepLease: "worker:sweep_expired_attempts:lease",
}
