package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/complidesk/gpsr-registry/pkg/audit"
	"github.com/complidesk/gpsr-registry/pkg/claims"
	"github.com/complidesk/gpsr-registry/pkg/datastore"
	"github.com/complidesk/gpsr-registry/pkg/identifier"
	"github.com/complidesk/gpsr-registry/pkg/product"
	"github.com/complidesk/gpsr-registry/pkg/responsibility"
	"github.com/complidesk/gpsr-registry/pkg/source"
	"github.com/complidesk/gpsr-registry/pkg/versioning"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "registryctl",
	Short: "Admin CLI for the GPSR entity registry",
	Long: `registryctl manages the product-safety entity registry database:
schema migration, provenance sources, responsibility resolution and
audit-log retention. Connection settings come from flags, environment
variables (REGISTRY_DB_TYPE, REGISTRY_DSN) or a config file.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./registryctl.yaml)")
	rootCmd.PersistentFlags().String("db-type", datastore.TypeSQLite, "Database type: postgres, mysql or sqlite")
	rootCmd.PersistentFlags().String("dsn", "registry.db", "Database connection string")

	_ = viper.BindPFlag("db-type", rootCmd.PersistentFlags().Lookup("db-type"))
	_ = viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn"))

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(auditCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("registryctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("REGISTRY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: could not read config: %v\n", err)
		}
	}
}

// registry bundles every store over one database connection.
type registry struct {
	db       *gorm.DB
	sources  *source.Store
	audit    *audit.Store
	entities *versioning.EntityStore
	brands   *versioning.BrandStore
	safety   *versioning.SafetyStore
	products *product.Store
	claims   *claims.Store
	resp     *responsibility.Store
	ids      *identifier.Store
}

// openRegistry connects to the configured database and wires the store graph,
// including the per-kind claim subject checkers.
func openRegistry() (*registry, error) {
	db, err := datastore.Open(viper.GetString("db-type"), viper.GetString("dsn"))
	if err != nil {
		return nil, err
	}

	r := &registry{db: db}
	r.sources = source.NewStore(db)
	r.audit = audit.NewStore(db)
	r.entities = versioning.NewEntityStore(db, r.sources, r.audit)
	r.brands = versioning.NewBrandStore(db, r.sources, r.audit)
	r.safety = versioning.NewSafetyStore(db, r.sources, r.audit)
	r.products = product.NewStore(db, r.sources, r.audit)
	r.resp = responsibility.NewStore(db, r.sources, r.audit, r.products.Exists, r.entities.Exists)
	r.ids = identifier.NewStore(db, r.sources, r.audit, r.entities.Exists)

	r.claims = claims.NewStore(db, r.sources, r.audit)
	r.claims.RegisterChecker(claims.SubjectEntity, r.entities.Exists)
	r.claims.RegisterChecker(claims.SubjectBrand, r.brands.Exists)
	r.claims.RegisterChecker(claims.SubjectProduct, r.products.Exists)
	r.claims.RegisterChecker(claims.SubjectResponsibility, r.resp.Exists)

	return r, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
