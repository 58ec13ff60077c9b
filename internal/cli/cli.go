package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bitfantasy/nimo-pharmacy/internal/config"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/cache"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/service"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Env 命令运行所需的存储与缓存
type Env struct {
	DB     *gorm.DB
	Cache  cache.OrderCache
	Logger *zap.Logger
}

// Opener 按需打开运行环境
type Opener func() (*Env, error)

type runner struct {
	open       Opener
	env        *Env
	api        *service.PurchaseOrderAPI
	pharmacyID string
	userID     string
	asJSON     bool
}

// NewRootCmd 创建 poctl 根命令
func NewRootCmd(open Opener) *cobra.Command {
	r := &runner{open: open}

	root := &cobra.Command{
		Use:           "poctl",
		Short:         "Pharmacy purchase order admin tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `poctl inspects and repairs pharmacy purchase orders against the same
service the HTTP API uses. Every order command is scoped to one pharmacy.`,
	}
	root.PersistentFlags().StringVar(&r.pharmacyID, "pharmacy", config.GetEnvOrDefault("POCTL_PHARMACY", ""), "pharmacy id the order belongs to (env POCTL_PHARMACY)")
	root.PersistentFlags().StringVar(&r.userID, "user", "poctl", "operator id recorded in the activity log")
	root.PersistentFlags().BoolVar(&r.asJSON, "json", false, "print the raw result envelope as JSON")

	root.AddCommand(r.migrateCmd())
	root.AddCommand(r.listCmd())
	root.AddCommand(r.createCmd())
	root.AddCommand(r.updateCmd())
	root.AddCommand(r.showCmd())
	root.AddCommand(r.statusCmd())
	root.AddCommand(r.confirmCmd())
	root.AddCommand(r.receiveCmd())
	root.AddCommand(r.receiveAllCmd())
	root.AddCommand(r.deleteCmd())
	return root
}

func (r *runner) ensureEnv() error {
	if r.env != nil {
		return nil
	}
	env, err := r.open()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if env.Cache == nil {
		env.Cache = cache.NopOrderCache{}
	}
	r.env = env
	r.api = service.NewServices(env.DB, env.Cache, env.Logger).API
	return nil
}

// scoped 订单命令的公共前置：需要 --pharmacy
func (r *runner) scoped() error {
	if r.pharmacyID == "" {
		return fmt.Errorf("--pharmacy flag is required")
	}
	return r.ensureEnv()
}

// report 输出结果信封；失败时返回错误使进程以非零退出
func report[T any](r *runner, out io.Writer, res service.Result[T], summary func(T)) error {
	if r.asJSON {
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	} else if res.Success {
		summary(res.Data)
	}
	if !res.Success {
		if !r.asJSON {
			fmt.Fprintf(out, "%s %s\n", color.New(color.FgRed).Sprint("✗"), res.Message)
		}
		return fmt.Errorf("%s", res.Message)
	}
	return nil
}

func statusColor(status string) string {
	switch status {
	case entity.POStatusReceived:
		return color.New(color.FgGreen).Sprint(status)
	case entity.POStatusPartiallyReceived, entity.POStatusConfirmed:
		return color.New(color.FgYellow).Sprint(status)
	case entity.POStatusCancelled:
		return color.New(color.FgRed).Sprint(status)
	default:
		return color.New(color.FgBlue).Sprint(status)
	}
}

func printOrder(out io.Writer, po *entity.PurchaseOrder) {
	fmt.Fprintf(out, "Order: %s (%s)\n", po.OrderNumber, po.ID)
	fmt.Fprintf(out, "  Supplier: %s\n", po.SupplierID)
	fmt.Fprintf(out, "  Status: %s\n", statusColor(po.Status))
	fmt.Fprintf(out, "  Total: %s\n", po.TotalCost.StringFixed(2))
	if po.Notes != "" {
		fmt.Fprintf(out, "  Notes: %s\n", po.Notes)
	}
	for _, l := range po.Lines {
		cost := "-"
		if l.UnitCost.Valid {
			cost = l.UnitCost.Decimal.StringFixed(2)
		}
		fmt.Fprintf(out, "  - %s  product=%s  qty=%d  received=%d  unit_cost=%s\n",
			l.ID, l.ProductID, l.Quantity, l.ReceivedQuantity, cost)
	}
}

// parsePairs 解析 key=value 形式的参数
func parsePairs(args []string) (map[string]string, error) {
	pairs := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("expected LINE_ID=VALUE, got %q", a)
		}
		pairs[k] = v
	}
	return pairs, nil
}

func parseQuantities(args []string) (map[string]int, error) {
	pairs, err := parsePairs(args)
	if err != nil {
		return nil, err
	}
	quantities := make(map[string]int, len(pairs))
	for k, v := range pairs {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity for line %s: %q", k, v)
		}
		quantities[k] = n
	}
	return quantities, nil
}

// parseItems 解析 PRODUCT=QTY 或 PRODUCT=QTY@UNIT_COST 形式的订单行
func parseItems(args []string) ([]service.OrderItemInput, error) {
	items := make([]service.OrderItemInput, 0, len(args))
	for _, a := range args {
		productID, rest, ok := strings.Cut(a, "=")
		if !ok || productID == "" || rest == "" {
			return nil, fmt.Errorf("expected PRODUCT_ID=QTY[@UNIT_COST], got %q", a)
		}
		qty, cost, hasCost := strings.Cut(rest, "@")
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity for product %s: %q", productID, qty)
		}
		item := service.OrderItemInput{ProductID: productID, Quantity: n}
		if hasCost {
			item.UnitCost = &cost
		}
		items = append(items, item)
	}
	return items, nil
}
