package server

import (
	"io"

	"github.com/ecotracker/fillstate/cmd/flag"
	"github.com/ecotracker/fillstate/internal/notification"
	"github.com/ecotracker/fillstate/internal/server"
	"github.com/ecotracker/fillstate/internal/utils"
	"github.com/spf13/cobra"
)

var (
	conf = server.Config{}

	Cmd = &cobra.Command{
		Use:   "server",
		Short: "Start the fill state server",
		Long:  `Serves the sensor ingestion API, the live observer channel and push fan-out.`,
		Run:   exec,
	}
)

func init() {
	flag.HTTPAddr(Cmd, &conf.BindAddress)
	Cmd.Flags().StringVar(&conf.CatalogProvider, "catalog-provider", "memory", "Catalog provider, memory or database")
	Cmd.Flags().StringVar(&conf.Username, "username", "postgres", "Catalog db username")
	Cmd.Flags().StringVar(&conf.Password, "password", "", "Catalog db password")
	Cmd.Flags().StringVar(&conf.Address, "db-address", "127.0.0.1", "Catalog db address")
	Cmd.Flags().IntVar(&conf.Port, "db-port", 5432, "Catalog db port")
	Cmd.Flags().StringVar(&conf.DBName, "db-name", "fillstate", "Catalog db name")
	Cmd.Flags().StringVar(&conf.SslMode, "ssl-mode", "disable", "Catalog db ssl mode")
	Cmd.Flags().IntVar(&conf.MaxIdleConns, "max-idle-conns", 10, "Catalog db max idle connections")
	Cmd.Flags().IntVar(&conf.MaxOpenConns, "max-open-conns", 10, "Catalog db max open connections")
	Cmd.Flags().StringVar(&conf.PulsarURL, "pulsar-url", "", "Pulsar URL for the firehose, empty to disable")
	Cmd.Flags().StringVar(&conf.PulsarTopic, "pulsar-topic", "fillstate-updates", "Pulsar topic for the firehose")
	Cmd.Flags().StringVar(&conf.FCMCredentialsFile, "fcm-credentials", "", "Firebase credentials file for push, empty to disable")
	Cmd.Flags().IntVar(&conf.PushFreshnessWindowSeconds, "push-freshness-window", int(notification.DefaultPushFreshnessWindow.Seconds()), "Push anti-flood window in seconds")
}

func exec(*cobra.Command, []string) {
	utils.RunProcess(func() (io.Closer, error) {
		return server.New(conf)
	})
}
