package netbox

import "context"

// GetOrCreateSoftwareImage 按版本查找或创建软件镜像（netbox-software-tracker 插件）。
func (w *Writer) GetOrCreateSoftwareImage(ctx context.Context, version string, params Params) (Object, bool, error) {
	return w.GetOrCreate(ctx, KindSoftwareImage, Filter{"version": version}, merge(Params{"version": version}, params))
}

// AssignGoldenImage 在设备类型尚无黄金镜像时创建关联，已有关联保持不变，返回是否新建。
func (w *Writer) AssignGoldenImage(ctx context.Context, deviceTypeID, imageID int) (bool, error) {
	existing, err := w.First(ctx, KindGoldenImage, Filter{"device_type_id": itoa(deviceTypeID)})
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if _, err := w.store.Create(ctx, KindGoldenImage, Params{"device_type": deviceTypeID, "software_image": imageID}); err != nil {
		return false, err
	}
	return true, nil
}

// SetLocalContext 以 merged 覆盖设备的 local_context_data。
func (w *Writer) SetLocalContext(ctx context.Context, deviceID int, merged map[string]any) error {
	_, err := w.store.Patch(ctx, KindDevice, deviceID, Params{"local_context_data": merged})
	return err
}
