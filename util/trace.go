package util

import (
	"log"
	"time"
)

// Trace 打点计时：defer util.Trace("xxx")()
func Trace(msg string) func() {
	start := time.Now()
	return func() {
		log.Printf("%s took %v", msg, time.Since(start))
	}
}
