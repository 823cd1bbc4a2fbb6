// Package client provides the `zaqar` command-line client.
//
// The CLI talks to the queuing service's HTTP endpoint to perform common
// queue, message, and claim operations from a terminal. It is primarily
// intended for developers and operators.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to http://127.0.0.1:8888 and can be overridden with the
// ZAQAR_HTTP environment variable. The project id comes from --project
// (default "default"); the client id from ZAQAR_CLIENT_ID or a generated
// UUID.
//
// Usage
//
//	zaqar queue create --name orders --metadata '{"team":"billing"}'
//	zaqar queue list --detailed
//	zaqar queue stats --name orders
//	zaqar queue delete --name orders
//
//	zaqar message post --queue orders --data '{"hello":"world"}' --ttl 300
//	zaqar message list --queue orders --echo --limit 10
//	zaqar message pop --queue orders --count 5
//
//	zaqar claim create --queue orders --ttl 300 --grace 60 --limit 10
//	zaqar claim release --queue orders --id CLAIM_ID
package client
