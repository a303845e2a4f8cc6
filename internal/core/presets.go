package core

// PresetCategories is the starter set offered to new users.
func PresetCategories() []CategoryInput {
	return []CategoryInput{
		{Name: "Housing", Budget: Cents(120000), Color: "#3b82f6", Icon: IconHome},
		{Name: "Transportation", Budget: Cents(30000), Color: "#f59e0b", Icon: IconCar},
		{Name: "Food & Dining", Budget: Cents(50000), Color: "#10b981", Icon: IconCoffee},
		{Name: "Shopping", Budget: Cents(20000), Color: "#8b5cf6", Icon: IconShoppingBag},
		{Name: "Entertainment", Budget: Cents(15000), Color: "#ec4899", Icon: IconSmartphone},
		{Name: "Utilities", Budget: Cents(15000), Color: "#ef4444", Icon: IconDollarSign},
	}
}
