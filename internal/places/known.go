package places

import "github.com/kjstillabower/krishi-dashboard/internal/models"

var knownPlaces = []models.KnownPlace{
	{Name: "New Delhi", Latitude: 28.6139, Longitude: 77.2090, Region: "Delhi"},
	{Name: "Mumbai", Latitude: 19.0760, Longitude: 72.8777, Region: "Maharashtra"},
	{Name: "Pune", Latitude: 18.5204, Longitude: 73.8567, Region: "Maharashtra"},
	{Name: "Nagpur", Latitude: 21.1458, Longitude: 79.0882, Region: "Maharashtra"},
	{Name: "Nashik", Latitude: 19.9975, Longitude: 73.7898, Region: "Maharashtra"},
	{Name: "Lucknow", Latitude: 26.8467, Longitude: 80.9462, Region: "Uttar Pradesh"},
	{Name: "Kanpur", Latitude: 26.4499, Longitude: 80.3319, Region: "Uttar Pradesh"},
	{Name: "Varanasi", Latitude: 25.3176, Longitude: 82.9739, Region: "Uttar Pradesh"},
	{Name: "Agra", Latitude: 27.1767, Longitude: 78.0081, Region: "Uttar Pradesh"},
	{Name: "Ludhiana", Latitude: 30.9010, Longitude: 75.8573, Region: "Punjab"},
	{Name: "Amritsar", Latitude: 31.6340, Longitude: 74.8723, Region: "Punjab"},
	{Name: "Chandigarh", Latitude: 30.7333, Longitude: 76.7794, Region: "Punjab"},
	{Name: "Karnal", Latitude: 29.6857, Longitude: 76.9905, Region: "Haryana"},
	{Name: "Hisar", Latitude: 29.1492, Longitude: 75.7217, Region: "Haryana"},
	{Name: "Jaipur", Latitude: 26.9124, Longitude: 75.7873, Region: "Rajasthan"},
	{Name: "Jodhpur", Latitude: 26.2389, Longitude: 73.0243, Region: "Rajasthan"},
	{Name: "Kota", Latitude: 25.2138, Longitude: 75.8648, Region: "Rajasthan"},
	{Name: "Ahmedabad", Latitude: 23.0225, Longitude: 72.5714, Region: "Gujarat"},
	{Name: "Rajkot", Latitude: 22.3039, Longitude: 70.8022, Region: "Gujarat"},
	{Name: "Surat", Latitude: 21.1702, Longitude: 72.8311, Region: "Gujarat"},
	{Name: "Bhopal", Latitude: 23.2599, Longitude: 77.4126, Region: "Madhya Pradesh"},
	{Name: "Indore", Latitude: 22.7196, Longitude: 75.8577, Region: "Madhya Pradesh"},
	{Name: "Jabalpur", Latitude: 23.1815, Longitude: 79.9864, Region: "Madhya Pradesh"},
	{Name: "Patna", Latitude: 25.5941, Longitude: 85.1376, Region: "Bihar"},
	{Name: "Ranchi", Latitude: 23.3441, Longitude: 85.3096, Region: "Jharkhand"},
	{Name: "Kolkata", Latitude: 22.5726, Longitude: 88.3639, Region: "West Bengal"},
	{Name: "Bhubaneswar", Latitude: 20.2961, Longitude: 85.8245, Region: "Odisha"},
	{Name: "Raipur", Latitude: 21.2514, Longitude: 81.6296, Region: "Chhattisgarh"},
	{Name: "Guwahati", Latitude: 26.1445, Longitude: 91.7362, Region: "Assam"},
	{Name: "Hyderabad", Latitude: 17.3850, Longitude: 78.4867, Region: "Telangana"},
	{Name: "Warangal", Latitude: 17.9689, Longitude: 79.5941, Region: "Telangana"},
	{Name: "Guntur", Latitude: 16.3067, Longitude: 80.4365, Region: "Andhra Pradesh"},
	{Name: "Visakhapatnam", Latitude: 17.6868, Longitude: 83.2185, Region: "Andhra Pradesh"},
	{Name: "Bengaluru", Latitude: 12.9716, Longitude: 77.5946, Region: "Karnataka"},
	{Name: "Mysuru", Latitude: 12.2958, Longitude: 76.6394, Region: "Karnataka"},
	{Name: "Hubballi", Latitude: 15.3647, Longitude: 75.1240, Region: "Karnataka"},
	{Name: "Chennai", Latitude: 13.0827, Longitude: 80.2707, Region: "Tamil Nadu"},
	{Name: "Coimbatore", Latitude: 11.0168, Longitude: 76.9558, Region: "Tamil Nadu"},
	{Name: "Madurai", Latitude: 9.9252, Longitude: 78.1198, Region: "Tamil Nadu"},
	{Name: "Thiruvananthapuram", Latitude: 8.5241, Longitude: 76.9366, Region: "Kerala"},
	{Name: "Kochi", Latitude: 9.9312, Longitude: 76.2673, Region: "Kerala"},
	{Name: "Dehradun", Latitude: 30.3165, Longitude: 78.0322, Region: "Uttarakhand"},
	{Name: "Shimla", Latitude: 31.1048, Longitude: 77.1734, Region: "Himachal Pradesh"},
	{Name: "Srinagar", Latitude: 34.0837, Longitude: 74.7973, Region: "Jammu and Kashmir"},
}
