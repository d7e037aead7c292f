package utils

import (
	"github.com/denisbrodbeck/machineid"
)

const hwidAppKey = "buildsync"

// HWID is an app-scoped, hashed machine id. Empty when the platform does not expose one.
var HWID = func() string {
	id, err := machineid.ProtectedID(hwidAppKey)
	if err != nil {
		return ""
	}
	return id
}()
