package common

import (
	"os"
)

const DefaultServiceName = "procurement"

var serviceInstance = detectServiceInstance()

func ServiceName() string {
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		return name
	}
	return DefaultServiceName
}

func ServiceInstance() string {
	return serviceInstance
}

func detectServiceInstance() string {
	if instance := os.Getenv("SERVICE_INSTANCE"); instance != "" {
		return instance
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "unknown"
	}
	return hostname
}
