package netbox

import (
	"context"
	"strings"
)

// Slug 按 NetBox 习惯生成 slug：小写，空格与斜杠替换为连字符，最多 50 个字符。
func Slug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

// GetOrCreateManufacturer 按名称查找或创建厂商。
func (w *Writer) GetOrCreateManufacturer(ctx context.Context, name string) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindManufacturer, Filter{"name": name}, Params{"name": name, "slug": Slug(name)})
}

// GetOrCreateSite 按名称查找或创建站点。
func (w *Writer) GetOrCreateSite(ctx context.Context, name string) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindSite, Filter{"name": name}, Params{"name": name, "slug": Slug(name)})
}

// GetOrCreateDeviceRole 按名称查找或创建设备角色。
func (w *Writer) GetOrCreateDeviceRole(ctx context.Context, name string) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindDeviceRole, Filter{"name": name}, Params{"name": name, "slug": Slug(name)})
}

// GetOrCreateDeviceType 按型号查找或创建设备类型。
func (w *Writer) GetOrCreateDeviceType(ctx context.Context, manufacturerID int, model string) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindDeviceType, Filter{"model": model},
		Params{"manufacturer": manufacturerID, "model": model, "slug": Slug(model)})
}

// FetchDeviceTypes 拉取厂商下的全部设备类型。
func (w *Writer) FetchDeviceTypes(ctx context.Context, manufacturerID int) ([]Object, error) {
	return w.store.List(ctx, KindDeviceType, Filter{"manufacturer_id": itoa(manufacturerID)})
}

// DeviceTypeByModel 按型号查找设备类型，不存在返回 nil。
func (w *Writer) DeviceTypeByModel(ctx context.Context, model string) (Object, error) {
	return w.First(ctx, KindDeviceType, Filter{"model": model})
}

// GetOrCreateDevice 按名称查找或创建 DCIM 设备。
func (w *Writer) GetOrCreateDevice(ctx context.Context, name string, deviceTypeID, siteID, roleID int, params Params) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindDevice, Filter{"name": name},
		merge(Params{"name": name, "device_type": deviceTypeID, "site": siteID, "role": roleID}, params))
}

// DeviceByName 按名称查找设备，不存在返回 nil。
func (w *Writer) DeviceByName(ctx context.Context, name string) (Object, error) {
	return w.First(ctx, KindDevice, Filter{"name": name})
}

// GetOrCreateIPAddress 先按主机地址（不含掩码）查找，再按完整地址查找或创建。
func (w *Writer) GetOrCreateIPAddress(ctx context.Context, address string, params Params) (Object, bool, error) {
	host := address
	if i := strings.IndexByte(address, '/'); i >= 0 {
		host = address[:i]
	}
	existing, err := w.First(ctx, KindIPAddress, Filter{"address": host})
	if err == nil && existing != nil {
		return existing, false, nil
	}
	return w.GetOrCreate(ctx, KindIPAddress, Filter{"address": address}, merge(Params{"address": address}, params))
}

// IPAddress 按地址查找，不存在返回 nil。
func (w *Writer) IPAddress(ctx context.Context, address string) (Object, error) {
	return w.First(ctx, KindIPAddress, Filter{"address": address})
}

// GetOrCreatePrefix 按前缀查找或创建。
func (w *Writer) GetOrCreatePrefix(ctx context.Context, prefix string, params Params) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindPrefix, Filter{"prefix": prefix}, merge(Params{"prefix": prefix}, params))
}
