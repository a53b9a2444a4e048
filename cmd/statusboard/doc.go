// Command statusboard runs the presence status daemon and talks to it.
//
// Usage:
//
//	statusboard serve --config ~/.config/statusboard.yaml --listen 0.0.0.0:8000
//	statusboard set 3
//	statusboard dnd
//	statusboard cycle
//	statusboard status [--json]
//	statusboard modes
//	statusboard watch --addr board.lan:8000
//
// serve flags:
//
//	--config, -c     YAML or JSONC config file (default $STATUSBOARD_CONFIG)
//	--listen         HTTP bind address (default 0.0.0.0:8000)
//	--log-level      trace, debug, info, warn or error (default $STATUSBOARD_LOG_LEVEL or info)
//	--poll-interval  signal polling interval (default 2s)
//	--no-notify      disable desktop notifications
//	--shutdown-secs  graceful shutdown timeout in seconds (default 5)
//
// Client subcommands take --addr (default $STATUSBOARD_ADDR or 127.0.0.1:8000)
// and --json.
//
// Behavior:
//
// serve loads configuration, starts the HTTP gateway, then polls desktop
// signals and resolves them into a mode. SIGUSR1 toggles do-not-disturb and
// SIGUSR2 cycles modes. SIGINT/SIGTERM stop polling, close every stream and
// shut the server down gracefully. The binary does not daemonize itself;
// run it under a user service manager for persistence.
package main
