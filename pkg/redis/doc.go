// Package redis connects to a Redis server with go-redis and exposes a
// health probe for readiness endpoints. Key/value access for the
// application lives in pkg/localstore.
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package redis
