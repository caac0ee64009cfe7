// Command evcachectl checks hosted-cache configuration and publishes
// invalidation events to caches listening on Redis.
//
//	evcachectl config /etc/evcache.yaml
//	evcachectl publish --redis-addr 127.0.0.1:6379 wrd:type.5.change
//	evcachectl publish --data '{"id":5}' system:cachereset
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
