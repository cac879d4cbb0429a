package cli

import (
	"aci2netbox/internal/app"
	"github.com/spf13/pflag"
)

// options 是命令行参数，只有显式设置的参数才覆盖配置。
type options struct {
	configPath string

	aciHost     string
	aciUsername string
	aciPassword string
	netboxURL   string
	netboxToken string

	dryRun          bool
	noVerify        bool
	continueOnError bool
	only            []string
	skip            []string

	verbose bool
	logFile string
}

const moduleChoices = "fabric,pods,nodes,tenants,vrfs,bds,subnets,aps,epgs,esgs,contracts,software"

func (o *options) bindConfig(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "配置文件路径（YAML 或 JSON），覆盖环境变量缺省值")
	fs.StringVar(&o.aciHost, "aci-host", "", "APIC 地址")
	fs.StringVar(&o.aciUsername, "aci-username", "", "APIC 用户名")
	fs.StringVar(&o.aciPassword, "aci-password", "", "APIC 密码")
	fs.StringVar(&o.netboxURL, "netbox-url", "", "NetBox 地址")
	fs.StringVar(&o.netboxToken, "netbox-token", "", "NetBox API token")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "输出 debug 日志")
	fs.StringVar(&o.logFile, "log-file", "", "同时写入的日志文件")
}

func (o *options) bindSync(fs *pflag.FlagSet) {
	fs.BoolVar(&o.dryRun, "dry-run", false, "只读取 ACI，不写入 NetBox")
	fs.BoolVar(&o.noVerify, "no-verify", false, "更新后不回读校验")
	fs.BoolVar(&o.continueOnError, "continue-on-error", false, "模块失败后继续执行后续模块")
	fs.StringSliceVar(&o.only, "only", nil, "只同步这些模块: "+moduleChoices)
	fs.StringSliceVar(&o.skip, "skip", nil, "跳过这些模块: "+moduleChoices)
}

// apply 把显式设置的参数合并进配置。
func (o *options) apply(fs *pflag.FlagSet, cfg *app.Config) {
	set := func(name string, fn func()) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			fn()
		}
	}
	set("aci-host", func() { cfg.ACI.Host = o.aciHost })
	set("aci-username", func() { cfg.ACI.Username = o.aciUsername })
	set("aci-password", func() { cfg.ACI.Password = o.aciPassword })
	set("netbox-url", func() { cfg.NetBox.URL = o.netboxURL })
	set("netbox-token", func() { cfg.NetBox.Token = o.netboxToken })
	set("dry-run", func() { cfg.Sync.DryRun = o.dryRun })
	set("no-verify", func() { cfg.Sync.VerifyUpdates = !o.noVerify })
	set("continue-on-error", func() { cfg.Sync.ContinueOnError = o.continueOnError })
	set("verbose", func() { cfg.Log.Verbose = o.verbose })
	set("log-file", func() { cfg.Log.File = o.logFile })
}

// load 读取配置文件并应用命令行参数。
func (o *options) load(fs *pflag.FlagSet) (app.Config, error) {
	cfg, err := app.LoadConfig(o.configPath)
	if err != nil {
		return cfg, err
	}
	o.apply(fs, &cfg)
	return cfg, nil
}
