package app

// defaultConfig holds values used when neither the config file nor the
// environment sets a key.
var defaultConfig = map[string]any{
	"app.name":                                     "otpreset",
	"app.server.http.address":                      ":8080",
	"app.server.http.read_timeout_seconds":         10,
	"app.server.http.read_header_timeout_seconds":  5,
	"app.server.http.write_timeout_seconds":        15,
	"app.server.http.idle_timeout_seconds":         60,
	"app.server.max_goroutine":                     32,
	"app.server.shutdown_timeout_seconds":          10,
	"database.pool.max_conns":                      10,
	"database.pool.min_conns":                      1,
	"database.pool.max_conn_lifetime_seconds":      3600,
	"database.pool.max_conn_idle_seconds":          300,
	"database.pool.health_check_period_seconds":    30,
	"hash.driver":                                  "bcrypt",
	"hash.bcrypt.cost":                             12,
	"instrument.service_name":                      "otpreset",
	"instrument.trace_sample_ratio":                1.0,
	"instrument.metric_interval_seconds":           15,
	"instrument.log_mask_fields":                   "otp,code,newPassword,password,sealing_key",
	"mail.driver":                                  "smtp",
	"mail.port":                                    587,
	"mail.dial_timeout_seconds":                    10,
	"messaging.driver":                             "memory",
	"messaging.kafka.dial_timeout_seconds":         10,
	"messaging.nats.max_reconnects":                60,
	"messaging.nats.timeout_seconds":               5,
	"messaging.nats.reconnect_wait_seconds":        2,
	"messaging.nsq.consumer_config.max_in_flight":  10,
	"messaging.nsq.consumer_config.max_attempts":   5,
	"mongo.database":                               "otpreset",
	"mongo.collection":                             "password_reset_profiles",
	"modules.notification.consumer_names":          "password_reset_code_notification",
	"modules.notification.consumer_concurrency":    10,
	"modules.notification.retry.base_millis":       200,
	"modules.notification.retry.max_retries":       3,
	"modules.passwordreset.call_timeout_seconds":   5,
	"modules.passwordreset.claim_before_update":    false,
	"modules.passwordreset.notifier.driver":        "mail",
	"modules.passwordreset.secret_store.driver":    "postgres",
	"modules.passwordreset.otp.issuer":             "otpreset",
	"modules.passwordreset.otp.period_seconds":     600,
	"modules.passwordreset.otp.skew":               0,
	"modules.passwordreset.otp.algorithm":          "SHA1",
}
